package database

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panta-workers/internal/common/config"
)

func TestPostgresClient_PingAndStats(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	pg := newPostgresClient(db, config.PostgresConfig{MaxConnections: 7, MaxIdle: 2, MaxLifetime: 1000})

	mock.ExpectPing()
	require.NoError(t, pg.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(assert.AnError)
	err = pg.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres ping failed")

	assert.Equal(t, 7, pg.Stats()["maxOpen"])

	mock.ExpectClose()
	require.NoError(t, pg.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisClient_Ping(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	addr := mr.Addr()
	rdb := NewRedis(config.RedisConfig{Address: addr, PoolSize: 2})
	t.Cleanup(func() { _ = rdb.Close() })

	require.NoError(t, rdb.Ping(context.Background()))
	assert.Equal(t, 2, rdb.Client.Options().PoolSize)

	mr.Close()
	err = rdb.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), addr)
}

// fakeES answers index existence checks with existsStatus and records index creation.
type fakeES struct {
	existsStatus int
	createStatus int
	createBody   string

	mu      sync.Mutex
	created []string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodHead:
		w.WriteHeader(f.existsStatus)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.created = append(f.created, r.URL.Path+" "+string(body))
		f.mu.Unlock()
		w.WriteHeader(f.createStatus)
		_, _ = w.Write([]byte(f.createBody))
	default:
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"tagline":"You Know, for Search"}`))
	}
}

func newTestES(t *testing.T, fake *fakeES) *ElasticsearchClient {
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return &ElasticsearchClient{Client: es}
}

func TestElasticsearchClient_EnsureIndex(t *testing.T) {
	const mapping = `{"mappings":{"properties":{"quoteId":{"type":"keyword"}}}}`

	tests := []struct {
		name        string
		fake        *fakeES
		wantErr     bool
		wantCreated int
	}{
		{
			name:        "already exists",
			fake:        &fakeES{existsStatus: http.StatusOK},
			wantCreated: 0,
		},
		{
			name:        "created when missing",
			fake:        &fakeES{existsStatus: http.StatusNotFound, createStatus: http.StatusOK, createBody: `{"acknowledged":true}`},
			wantCreated: 1,
		},
		{
			name: "created concurrently elsewhere",
			fake: &fakeES{
				existsStatus: http.StatusNotFound,
				createStatus: http.StatusBadRequest,
				createBody:   `{"error":{"type":"resource_already_exists_exception"},"status":400}`,
			},
			wantCreated: 1,
		},
		{
			name: "rejected mapping",
			fake: &fakeES{
				existsStatus: http.StatusNotFound,
				createStatus: http.StatusBadRequest,
				createBody:   `{"error":{"type":"mapper_parsing_exception"},"status":400}`,
			},
			wantErr:     true,
			wantCreated: 1,
		},
		{
			name:    "cluster unavailable",
			fake:    &fakeES{existsStatus: http.StatusServiceUnavailable},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			es := newTestES(t, tt.fake)

			err := es.EnsureIndex(context.Background(), "vehicle-quotes", mapping)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.Len(t, tt.fake.created, tt.wantCreated)
			if tt.wantCreated > 0 {
				assert.Equal(t, "/vehicle-quotes "+mapping, tt.fake.created[0])
			}
		})
	}
}

func TestNewElasticsearch_FallsBackToURL(t *testing.T) {
	fake := &fakeES{existsStatus: http.StatusOK}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	es, err := NewElasticsearch(config.ElasticsearchConfig{URL: srv.URL})
	require.NoError(t, err)

	assert.NoError(t, es.Ping(context.Background()))
}
