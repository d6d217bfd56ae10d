package filestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID    string
	Value int
}

func (r record) Identifier() string { return r.ID }

func recordHandler() TypeHandler {
	return TypeHandler{
		Version: 1,
		Encode: func(e Entity) ([]byte, error) { return MarshalJSON(e.(record)) },
		Decode: func(data []byte) (Entity, error) {
			var r record
			if err := UnmarshalJSON(data, &r); err != nil {
				return nil, err
			}
			return r, nil
		},
	}
}

// S6 (spec.md scenario S6): a corrupt on-disk record must not abort
// Load — the error handler is invoked for the bad file and every
// other record is still returned.
func TestS6LoadSkipsCorruptRecords(t *testing.T) {
	dir := t.TempDir()
	var reported []string
	svc := New(dir, "BTC", "mainnet", func(typeName, identifier string, err *Error) {
		reported = append(reported, identifier)
		assert.Equal(t, KindEntity, err.Kind)
	})
	svc.RegisterType("transfer", recordHandler())

	require.NoError(t, svc.Save("transfer", record{ID: "good-1", Value: 1}))
	require.NoError(t, svc.Save("transfer", record{ID: "good-2", Value: 2}))

	corruptPath := filepath.Join(svc.typeDir("transfer", 1), "corrupt.bin")
	require.NoError(t, os.WriteFile(corruptPath, []byte("not json"), 0600))

	entities, err := svc.Load("transfer")
	require.NoError(t, err)

	assert.Len(t, entities, 2, "the two good records must still load")
	assert.Contains(t, reported, "corrupt.bin")

	var ids []string
	for _, e := range entities {
		ids = append(ids, e.(record).ID)
	}
	assert.ElementsMatch(t, []string{"good-1", "good-2"}, ids)
}

func TestSaveRemoveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	svc := New(dir, "BTC", "mainnet", nil)
	svc.RegisterType("transfer", recordHandler())

	r := record{ID: "a", Value: 7}
	require.NoError(t, svc.Save("transfer", r))

	loaded, err := svc.Load("transfer")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, r, loaded[0])

	require.NoError(t, svc.Remove("transfer", r))
	loaded, err = svc.Load("transfer")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSaveUnregisteredTypeIsImplError(t *testing.T) {
	dir := t.TempDir()
	svc := New(dir, "BTC", "mainnet", nil)

	err := svc.Save("unknown", record{ID: "x"})
	require.Error(t, err)
	var fsErr *Error
	require.ErrorAs(t, err, &fsErr)
	assert.Equal(t, KindImpl, fsErr.Kind)
}

func TestWipeRemovesCurrencyNetworkSubtree(t *testing.T) {
	dir := t.TempDir()
	svc := New(dir, "BTC", "mainnet", nil)
	svc.RegisterType("transfer", recordHandler())
	require.NoError(t, svc.Save("transfer", record{ID: "w", Value: 1}))

	require.NoError(t, Wipe(dir, "BTC", "mainnet"))

	_, err := os.Stat(filepath.Join(dir, "BTC", "mainnet"))
	assert.True(t, os.IsNotExist(err))
}
