package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockModel_ScriptThenFallback(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockModel("mock").AddResponse(`{"a":1}`).AddError(boom)

	resp, err := m.Generate(context.Background(), Request{Prompt: "p1"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, resp.Text)
	assert.Equal(t, "mock", resp.Model)

	_, err = m.Generate(context.Background(), Request{Prompt: "p2"})
	assert.ErrorIs(t, err, boom)

	resp, err = m.Generate(context.Background(), Request{Prompt: "p3"})
	require.NoError(t, err)
	assert.Equal(t, "{}", resp.Text)

	reqs := m.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "p2", reqs[1].Prompt)
}

func TestMockModel_HonoursCancellation(t *testing.T) {
	m := NewMockModel("mock")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Generate(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, m.Requests())
}

func TestMockModel_Ready(t *testing.T) {
	m := NewMockModel("mock")
	assert.NoError(t, m.Ready(context.Background()))
	m.SetReadyError(ErrNotReady)
	assert.ErrorIs(t, m.Ready(context.Background()), ErrNotReady)
	assert.Equal(t, Info{Name: "mock", Provider: "mock"}, m.Info())
}
