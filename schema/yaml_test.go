// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const declarationsYAML = `
entities:
  - entity: user_test
    fields:
      username: {shape: string, minLength: 3}
      age: {shape: number, min: 18}
      tags: {shape: array}
      nickname:
  - entity: {name: order}
    fields:
      total: {shape: number, nullable: false, overridesOnNull: true, max: 500}
      code: {regex: "^[A-Z]{3}$", maxLength: 3}
  - name: legacy
    fields: {}
  - fields:
      orphan: {}
`

func TestParseDeclarations(t *testing.T) {
	decls, err := ParseDeclarations([]byte(declarationsYAML))
	require.NoError(t, err)
	require.Len(t, decls, 4)

	user, err := GenerateDeclaration(decls[0])
	require.NoError(t, err)
	assert.Equal(t, "user_test", user.Name)
	assert.Equal(t, Field{
		FieldType:   PrimitiveType(String),
		Nullable:    true,
		Constraints: &FieldConstraints{MinLength: i32(3)},
	}, user.Fields["username"])
	assert.Equal(t, float(18), user.Fields["age"].Constraints.MinValue)
	assert.Equal(t, ArrayOf(PrimitiveType(String)), user.Fields["tags"].FieldType)
	assert.Equal(t, Field{FieldType: PrimitiveType(String), Nullable: true}, user.Fields["nickname"])

	order, err := GenerateDeclaration(decls[1])
	require.NoError(t, err)
	assert.Equal(t, "order", order.Name)
	total := order.Fields["total"]
	assert.False(t, total.Nullable)
	assert.True(t, total.OverridesOnNull)
	assert.Equal(t, float(500), total.Constraints.MaxValue)
	assert.Equal(t, "^[A-Z]{3}$", *order.Fields["code"].Constraints.Regex)

	legacy, err := GenerateDeclaration(decls[2])
	require.NoError(t, err)
	assert.Equal(t, "legacy", legacy.Name)
	assert.Empty(t, legacy.Fields)

	_, err = GenerateDeclaration(decls[3])
	assert.ErrorIs(t, err, ErrMissingEntityDescriptor)
}

func TestParseDeclarationsErrors(t *testing.T) {
	_, err := ParseDeclarations([]byte("entities:\n  - entity: [a, b]\n"))
	assert.Error(t, err)

	_, err = ParseDeclarations([]byte("entities:\n  - entity: x\n    fields:\n      f: {shape: date}\n"))
	assert.ErrorContains(t, err, "date")

	_, err = ParseDeclarations([]byte("entities: {"))
	assert.Error(t, err)
}

func TestLoadDeclarations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(declarationsYAML), 0o644))

	decls, err := LoadDeclarations(path)
	require.NoError(t, err)
	assert.Len(t, decls, 4)

	_, err = LoadDeclarations(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
