package vault

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *Record {
	return &Record{
		SID:          "sid-1",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		UserID:       "u-1",
		Role:         "doctor",
		User:         &UserRecord{ID: "u-1", Email: "doc@clinic.example", Name: "Dr. Gris", Role: "doctor"},
	}
}

// Both in-process backends must behave identically through the Store contract.
func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemory() },
		"file": func(t *testing.T) Store {
			s, err := NewFile(t.TempDir())
			require.NoError(t, err)
			return s
		},
	}

	for name, make := range stores {
		t.Run(name, func(t *testing.T) {
			s := make(t)

			_, err := s.Load(ctx, "sid-1")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Save(ctx, sampleRecord()))
			got, err := s.Load(ctx, "sid-1")
			require.NoError(t, err)
			assert.Equal(t, "refresh-1", got.RefreshToken)
			assert.Equal(t, "doctor", got.Role)
			require.NotNil(t, got.User)
			assert.Equal(t, "Dr. Gris", got.User.Name)

			// Save overwrites.
			upd := sampleRecord()
			upd.AccessToken = "access-2"
			require.NoError(t, s.Save(ctx, upd))
			got, err = s.Load(ctx, "sid-1")
			require.NoError(t, err)
			assert.Equal(t, "access-2", got.AccessToken)

			// Delete is idempotent.
			require.NoError(t, s.Delete(ctx, "sid-1"))
			require.NoError(t, s.Delete(ctx, "sid-1"))
			_, err = s.Load(ctx, "sid-1")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestFileStoreHostileSIDStaysInDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFile(dir)
	require.NoError(t, err)

	rec := sampleRecord()
	rec.SID = "../../etc/escape"
	require.NoError(t, s.Save(ctx, rec))

	got, err := s.Load(ctx, rec.SID)
	require.NoError(t, err)
	assert.Equal(t, rec.SID, got.SID)
	require.NoError(t, s.Delete(ctx, rec.SID))
}

func TestCodecSealOpen(t *testing.T) {
	c, err := NewCodec("correct horse battery staple")
	require.NoError(t, err)

	sealed, err := c.Seal("refresh-1")
	require.NoError(t, err)
	assert.NotEqual(t, "refresh-1", sealed)
	assert.Contains(t, sealed, "|")

	plain, err := c.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", plain)

	t.Run("empty passes through", func(t *testing.T) {
		sealed, err := c.Seal("")
		require.NoError(t, err)
		assert.Empty(t, sealed)
		plain, err := c.Open("")
		require.NoError(t, err)
		assert.Empty(t, plain)
	})

	t.Run("nonce rotates per seal", func(t *testing.T) {
		a, err := c.Seal("refresh-1")
		require.NoError(t, err)
		b, err := c.Seal("refresh-1")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("malformed input", func(t *testing.T) {
		_, err := c.Open("no separator")
		assert.ErrorIs(t, err, ErrSealedFormat)
		_, err = c.Open("!!!|!!!")
		assert.ErrorIs(t, err, ErrSealedFormat)
	})

	t.Run("wrong key fails", func(t *testing.T) {
		other, err := NewCodec("another passphrase")
		require.NoError(t, err)
		_, err = other.Open(sealed)
		assert.Error(t, err)
	})

	t.Run("empty passphrase rejected", func(t *testing.T) {
		_, err := NewCodec("  ")
		assert.Error(t, err)
	})
}

func TestEncryptedStore(t *testing.T) {
	ctx := context.Background()
	codec, err := NewCodec("correct horse battery staple")
	require.NoError(t, err)
	inner := NewMemory()
	s := Encrypted(inner, codec)

	require.NoError(t, s.Save(ctx, sampleRecord()))

	// Through the wrapper the tokens come back in the clear.
	got, err := s.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "access-1", got.AccessToken)
	assert.Equal(t, "refresh-1", got.RefreshToken)

	// The inner store only ever sees sealed token material; identity fields
	// stay readable.
	raw, err := inner.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.NotEqual(t, "access-1", raw.AccessToken)
	assert.NotEqual(t, "refresh-1", raw.RefreshToken)
	assert.Equal(t, "u-1", raw.UserID)
	assert.Equal(t, "doctor", raw.Role)

	require.NoError(t, s.Delete(ctx, "sid-1"))
	_, err = s.Load(ctx, "sid-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
