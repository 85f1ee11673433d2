package hackpoint

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/raikoh/hackpoint/conf"
)

func nopHandler(*RegisterContext, *conf.Value) bool { return true }

func TestBreakpointKey(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"msg_select", "BP_msg_select"},
		{"msg_select#2", "BP_msg_select"},
		{"codecave:th06_music", "codecave:th06_music"},
		// Code-cave slots are distinct targets, not instances of one
		// handler: the suffix stays in the key.
		{"codecave:th06_music#3", "codecave:th06_music#3"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, breakpointKey(tt.name))
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("BP_msg_select", nopHandler))
	require.ErrorIs(t, r.Register("BP_msg_select", nopHandler), ErrDoubleRegister)
	require.NoError(t, r.Register("codecave:th06_music", nopHandler))

	h, ok := r.Lookup("BP_msg_select")
	require.True(t, ok)
	require.NotNil(t, h)
	_, ok = r.Lookup("BP_absent")
	require.False(t, ok)

	require.Equal(t, []string{"BP_msg_select", "codecave:th06_music"}, r.Names())

	r.Seal()
	require.ErrorIs(t, r.Register("BP_late", nopHandler), ErrSealedRegistry)
}
