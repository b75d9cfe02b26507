package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/cryptox"
	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/dmitrijs2005/fileshare/internal/server/auth"
	"github.com/dmitrijs2005/fileshare/internal/server/blobstore"
	"github.com/dmitrijs2005/fileshare/internal/server/metrics"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fileshare/internal/server/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://files.example.com"

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type sentMail struct {
	to, subject, body string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

// lastToken extracts the token from the most recent verification link.
func (n *recordingNotifier) lastToken(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent, "no mail sent")
	body := n.sent[len(n.sent)-1].body
	const marker = testBaseURL + "/client/verify/"
	i := strings.Index(body, marker)
	require.GreaterOrEqual(t, i, 0, "no verification link in %q", body)
	rest := body[i+len(marker):]
	if j := strings.IndexAny(rest, "\r\n"); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

type testEnv struct {
	rm       *repomanager.MemoryRepositoryManager
	blobs    *blobstore.MemoryStore
	clock    *clock
	signer   *auth.Signer
	hasher   *cryptox.Hasher
	notifier *recordingNotifier
	metrics  *metrics.Metrics

	auth     *AuthService
	signup   *SignupService
	download *DownloadService
	files    *FileService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hasher, err := cryptox.NewHasher(cryptox.Params{Time: 1, Memory: 8, Threads: 1, SaltLen: 8, KeyLen: 16})
	require.NoError(t, err)

	signer, err := auth.NewSigner([]byte(strings.Repeat("s", auth.MinSecretLen)))
	require.NoError(t, err)
	clk := &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	signer.Now = clk.Now

	log := logging.NewNop()
	m := metrics.New(prometheus.NewRegistry())
	rm := repomanager.NewMemoryRepositoryManager()
	blobs := blobstore.NewMemoryStore()
	reg := sessions.NewRegistry(sessions.NewMemoryStore(), time.Hour, m)
	n := &recordingNotifier{}

	return &testEnv{
		rm:       rm,
		blobs:    blobs,
		clock:    clk,
		signer:   signer,
		hasher:   hasher,
		notifier: n,
		metrics:  m,
		auth:     NewAuthService(rm, reg, hasher, m, log),
		signup:   NewSignupService(rm, signer, hasher, n, testBaseURL+"/", m, log),
		download: NewDownloadService(rm, signer, testBaseURL, m, log),
		files:    NewFileService(rm, blobs, 1<<20, log),
	}
}
