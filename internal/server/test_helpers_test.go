package server

import (
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"hill-valley/internal/config"
	"hill-valley/internal/db"
	"hill-valley/internal/media"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

// testClock is a settable clock shared by the server and the test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testApp struct {
	srv    *Server
	ts     *httptest.Server
	db     *gorm.DB
	clock  *testClock
	client *http.Client
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := config.Default()
	cfg.DatabaseDriver = config.DriverSQLite
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg.DatabaseURL = fmt.Sprintf("file:server_%s?mode=memory&cache=shared", name)
	cfg.DBMaxOpenConns = 1
	cfg.DBMaxIdleConns = 1
	conn, err := db.Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

func newTestApp(t *testing.T, configure func(*config.Config)) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn := openTestDB(t)
	cfg := config.Default()
	cfg.PublicBaseURL = "https://party.example"
	if configure != nil {
		configure(&cfg)
	}
	store, err := media.NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("disk store: %v", err)
	}
	clock := &testClock{now: time.Date(2025, 10, 31, 20, 0, 0, 0, time.UTC)}
	srv := New(conn, cfg, WithMedia(store), WithClock(clock.Now))
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)
	return &testApp{
		srv:    srv,
		ts:     ts,
		db:     conn,
		clock:  clock,
		client: newClient(t),
	}
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
