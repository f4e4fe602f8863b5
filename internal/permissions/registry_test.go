package permissions

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterRejectsBadDefinitions(t *testing.T) {
	require.Error(t, Register(nil))
	require.Error(t, Register(&Permission{ID: "  "}))
	require.Error(t, Register(&Permission{ID: "x.loop", DependsOn: []string{"x.loop"}}))
	require.Error(t, Register(&Permission{ID: "x.self", Implies: []string{"x.self"}}))

	// core.go registered this at init time
	require.ErrorContains(t, Register(&Permission{ID: "range.view"}), "already registered")
}

func TestGetReturnsCopies(t *testing.T) {
	perm, ok := Get("range.delete")
	require.True(t, ok)

	perm.DependsOn[0] = "mutated"

	again, ok := Get("range.delete")
	require.True(t, ok)
	require.NotEqual(t, "mutated", again.DependsOn[0])
}

func TestResolveDependenciesTransitive(t *testing.T) {
	deps, err := ResolveDependencies("range.delete")
	require.NoError(t, err)
	// range.delete -> range.view, range.edit; range.view/edit -> team.view/range.view
	require.Contains(t, deps, "range.view")
	require.Contains(t, deps, "range.edit")
	require.Contains(t, deps, "team.view")

	_, err = ResolveDependencies("does.not.exist")
	require.ErrorIs(t, err, ErrUnknownPermission)
}

func TestValidateDependencies(t *testing.T) {
	require.NoError(t, ValidateDependencies())
}
