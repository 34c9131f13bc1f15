package relay_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"merklesig/internal/crypto"
	"merklesig/internal/domain"
	"merklesig/internal/protocol/mss"
	"merklesig/internal/relay"
	"merklesig/internal/services/keys"
	"merklesig/internal/services/message"
	"merklesig/internal/store"
	"merklesig/internal/wire"
)

func init() { gin.SetMode(gin.TestMode) }

func newRelay(t *testing.T) (*relay.Server, *relay.HTTP) {
	t.Helper()
	box, err := relay.OpenMailbox("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = box.Close() })
	srv := relay.NewServer(box, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, relay.NewHTTP(ts.URL, ts.Client())
}

func encodedKey(t *testing.T) (*mss.PrivateKey, []byte) {
	t.Helper()
	sk, err := mss.GenerateKey(crypto.Default(), 2, nil)
	require.NoError(t, err)
	return sk, wire.MarshalPublicKey(sk.Public())
}

func TestKeys_PublishFetch(t *testing.T) {
	ctx := context.Background()
	srv, client := newRelay(t)
	_, pub := encodedKey(t)

	require.NoError(t, client.PublishKey(ctx, domain.PublishedKey{Name: "alice", PublicKey: pub}))
	// Re-publishing the same key is allowed.
	require.NoError(t, client.PublishKey(ctx, domain.PublishedKey{Name: "alice", PublicKey: pub}))

	got, err := client.FetchKey(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, pub, got.PublicKey)

	_, other := encodedKey(t)
	err = client.PublishKey(ctx, domain.PublishedKey{Name: "alice", PublicKey: other})
	var se *relay.StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusConflict, se.Code)

	err = client.PublishKey(ctx, domain.PublishedKey{Name: "junk", PublicKey: []byte("nope")})
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusBadRequest, se.Code)

	_, err = client.FetchKey(ctx, "nobody")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.Equal(t, 2.0, testutil.ToFloat64(srv.Metrics().KeysPublished))
}

func TestMailbox_SendFetchAck(t *testing.T) {
	ctx := context.Background()
	srv, client := newRelay(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, client.SendMessage(ctx, domain.Envelope{From: "a", To: "bob", Seq: uint64(i), Message: []byte{byte(i)}}))
	}
	envs, err := client.FetchMessages(ctx, "bob", 2)
	require.NoError(t, err)
	require.Len(t, envs, 2)
	require.EqualValues(t, 0, envs[0].Seq)
	require.EqualValues(t, 1, envs[1].Seq)

	require.NoError(t, client.AckMessages(ctx, "bob", 2))
	envs, err = client.FetchMessages(ctx, "bob", 0)
	require.NoError(t, err)
	require.Len(t, envs, 1)
	require.EqualValues(t, 2, envs[0].Seq)

	empty, err := client.FetchMessages(ctx, "carol", 0)
	require.NoError(t, err)
	require.Empty(t, empty)

	require.Equal(t, 3.0, testutil.ToFloat64(srv.Metrics().EnvelopesQueued))
	require.Equal(t, 2.0, testutil.ToFloat64(srv.Metrics().EnvelopesAcked))
	require.Equal(t, 3.0, testutil.ToFloat64(srv.Metrics().RequestCount.WithLabelValues(http.MethodPost, "/msg/:user", "200")))
}

func TestVerifyEndpoint(t *testing.T) {
	ctx := context.Background()
	srv, client := newRelay(t)
	sk, pub := encodedKey(t)
	sig, err := sk.Sign([]byte("m"))
	require.NoError(t, err)
	enc := wire.MarshalSignature(sig)

	ok, err := client.Verify(ctx, pub, []byte("m"), enc)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = client.Verify(ctx, pub, []byte("other"), enc)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = client.Verify(ctx, pub, []byte("m"), enc[:10])
	require.Error(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(srv.Metrics().Verifications.WithLabelValues("valid")))
	require.Equal(t, 1.0, testutil.ToFloat64(srv.Metrics().Verifications.WithLabelValues("invalid")))
	require.Equal(t, 1.0, testutil.ToFloat64(srv.Metrics().Verifications.WithLabelValues("malformed")))
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newRelay(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "relay_request_count"))
}

func TestEndToEnd_MessagingOverHTTP(t *testing.T) {
	ctx := context.Background()
	_, client := newRelay(t)
	const pass = "Correct-Horse-9!"
	kdf := store.WithKDF(store.KDFParams{N: 1 << 10, R: 8, P: 1})

	aliceHome, bobHome := t.TempDir(), t.TempDir()
	aliceKeys := keys.New(store.NewKeyFileStore(aliceHome, kdf), store.NewStateFileStore(aliceHome), nil)
	bobKeys := keys.New(store.NewKeyFileStore(bobHome, kdf), store.NewStateFileStore(bobHome), nil)
	alice := message.New(aliceKeys, store.NewRatchetFileStore(aliceHome, kdf), client, nil)
	bob := message.New(bobKeys, store.NewRatchetFileStore(bobHome, kdf), client, nil)

	_, err := aliceKeys.Generate(ctx, pass, "alice", 2, "sha3-256")
	require.NoError(t, err)
	pub, err := aliceKeys.PublicKey("alice")
	require.NoError(t, err)
	require.NoError(t, client.PublishKey(ctx, domain.PublishedKey{Name: "alice", PublicKey: pub}))

	require.NoError(t, alice.SendMessage(ctx, pass, "alice", "bob", []byte("hi bob")))
	require.NoError(t, alice.SendMessage(ctx, pass, "alice", "bob", []byte("second")))

	got, err := bob.ReceiveMessages(ctx, pass, "bob", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "hi bob", string(got[0].Message))
	require.Equal(t, "second", string(got[1].Message))

	left, err := client.FetchMessages(ctx, "bob", 0)
	require.NoError(t, err)
	require.Empty(t, left)
}
