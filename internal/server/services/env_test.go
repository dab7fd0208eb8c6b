package services

import (
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophdrive/internal/dbx"
	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/dmitrijs2005/gophdrive/internal/server/config"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophdrive/internal/server/storage"
	"github.com/stretchr/testify/require"
)

// testEnv wires every service against a temporary SQLite file and a local
// storage directory.
type testEnv struct {
	db       *sql.DB
	rm       repomanager.RepositoryManager
	cfg      *config.Config
	root     string
	store    *storage.Store
	paths    *PathResolver
	versions *VersionManager
	quota    *QuotaTracker
	search   *SearchIndex
	tree     *TreeManager
}

func newTestEnv(t *testing.T, tweak ...func(*config.Config)) *testEnv {
	t.Helper()
	ctx := context.Background()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.StorageRoot = filepath.Join(t.TempDir(), "storage")
	for _, f := range tweak {
		f(cfg)
	}

	db, err := dbx.Open(ctx, dbx.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rm, err := repomanager.NewSQLRepositoryManager(dbx.DriverSQLite, nil)
	require.NoError(t, err)
	require.NoError(t, rm.RunMigrations(ctx, db))

	backend, err := storage.NewLocalBackend(cfg.StorageRoot)
	require.NoError(t, err)
	store, err := storage.NewStore(backend, cfg.ChecksumAlgorithm)
	require.NoError(t, err)

	paths := NewPathResolver(db, rm, cfg.MaxTreeDepth)
	versions := NewVersionManager(db, rm, store)
	quota := NewQuotaTracker(db, rm, cfg.QuotaFor)

	return &testEnv{
		db:       db,
		rm:       rm,
		cfg:      cfg,
		root:     backend.Root(),
		store:    store,
		paths:    paths,
		versions: versions,
		quota:    quota,
		search:   NewSearchIndex(db, rm),
		tree:     NewTreeManager(db, rm, store, paths, versions, quota, cfg, logging.NewNopLogger()),
	}
}

func (e *testEnv) mkdir(t *testing.T, owner, name string, parent *models.Folder) *models.Folder {
	t.Helper()
	req := CreateFolderRequest{Owner: owner, Name: name}
	if parent != nil {
		req.ParentID = &parent.ID
	}
	f, err := e.tree.CreateFolder(context.Background(), req)
	require.NoError(t, err)
	return f
}

func (e *testEnv) upload(t *testing.T, owner, name string, parent *models.Folder, content string) *UploadResult {
	t.Helper()
	res, err := e.tree.UploadFile(context.Background(), uploadReq(owner, name, parent, content))
	require.NoError(t, err)
	return res
}

func uploadReq(owner, name string, parent *models.Folder, content string) UploadRequest {
	req := UploadRequest{
		Owner:   owner,
		Name:    name,
		Content: strings.NewReader(content),
		Size:    int64(len(content)),
	}
	if parent != nil {
		req.ParentID = &parent.ID
	}
	return req
}

// physical returns the path of a storage key on disk.
func (e *testEnv) physical(key string) string {
	return filepath.Join(e.root, filepath.FromSlash(key))
}

func (e *testEnv) readKey(t *testing.T, key string) string {
	t.Helper()
	b, err := os.ReadFile(e.physical(key))
	require.NoError(t, err)
	return string(b)
}

func (e *testEnv) exists(key string) bool {
	_, err := os.Stat(e.physical(key))
	return err == nil
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func ptr(s string) *string { return &s }
