package statusapi

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRegistry struct {
	managers []ManagerStatus
	beers    map[string]BeerStatus
}

func (f *fakeRegistry) ManagerStatuses() []ManagerStatus { return f.managers }
func (f *fakeRegistry) BeerStatus(name string) (BeerStatus, bool) {
	b, ok := f.beers[name]
	return b, ok
}

func startTestServer(t *testing.T, reg Registry) string {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "status.sock")
	srv := NewServer(socketPath, reg, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	require.Eventually(t, func() bool {
		conn, err := net.Dial("unix", socketPath)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, time.Second, 10*time.Millisecond)

	return socketPath
}

func request(t *testing.T, socketPath string, req Request) Response {
	t.Helper()
	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	data, err := json.Marshal(req)
	require.NoError(t, err)
	_, err = conn.Write(data)
	require.NoError(t, err)

	var resp Response
	dec := json.NewDecoder(conn)
	require.NoError(t, dec.Decode(&resp))
	return resp
}

func TestStatusAPIList(t *testing.T) {
	reg := &fakeRegistry{managers: []ManagerStatus{
		{Name: "fermenter-1", Beer: "pale-ale", State: "sleeping"},
	}}
	socketPath := startTestServer(t, reg)

	resp := request(t, socketPath, Request{Cmd: "list"})
	assert.True(t, resp.OK)
	require.Len(t, resp.Managers, 1)
	assert.Equal(t, "fermenter-1", resp.Managers[0].Name)
}

func TestStatusAPIStatus(t *testing.T) {
	reg := &fakeRegistry{beers: map[string]BeerStatus{
		"pale-ale": {Name: "pale-ale", RequiresHeating: true},
	}}
	socketPath := startTestServer(t, reg)

	resp := request(t, socketPath, Request{Cmd: "status", Name: "pale-ale"})
	assert.True(t, resp.OK)
	require.NotNil(t, resp.Beer)
	assert.True(t, resp.Beer.RequiresHeating)
}

func TestStatusAPIUnknownBeer(t *testing.T) {
	reg := &fakeRegistry{beers: map[string]BeerStatus{}}
	socketPath := startTestServer(t, reg)

	resp := request(t, socketPath, Request{Cmd: "status", Name: "nonexistent"})
	assert.False(t, resp.OK)
	assert.NotEmpty(t, resp.Error)
}

func TestStatusAPIUnknownCommand(t *testing.T) {
	reg := &fakeRegistry{}
	socketPath := startTestServer(t, reg)

	resp := request(t, socketPath, Request{Cmd: "reset"})
	assert.False(t, resp.OK)
}

func TestStatusAPIInvalidJSON(t *testing.T) {
	reg := &fakeRegistry{}
	socketPath := startTestServer(t, reg)

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("not json"))
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.NewDecoder(conn).Decode(&resp))
	assert.False(t, resp.OK)
}
