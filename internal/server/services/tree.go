package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/dbx"
	"github.com/dmitrijs2005/gophdrive/internal/logging"
	sc "github.com/dmitrijs2005/gophdrive/internal/server/config"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophdrive/internal/server/storage"
	"github.com/google/uuid"
)

// UploadResult is the outcome of UploadFile. Version is 1 for a new file
// and the number following the snapshot of the previous content otherwise.
type UploadResult struct {
	File    *models.File
	Version int
	Created bool
}

// FolderDetails is a folder together with its path, size and children.
type FolderDetails struct {
	Folder   *models.Folder
	Path     string
	Size     int64
	Children *models.Listing
}

// TreeManager owns the folder/file hierarchy of every owner: placement,
// naming, moves, deletion and the link between rows and stored content.
type TreeManager struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       *storage.Store
	paths       *PathResolver
	versions    *VersionManager
	quota       *QuotaTracker
	config      *sc.Config
	logger      logging.Logger
	locks       *ownerLocks
	now         func() time.Time
}

func NewTreeManager(db *sql.DB, repomanager repomanager.RepositoryManager, store *storage.Store,
	paths *PathResolver, versions *VersionManager, quota *QuotaTracker,
	config *sc.Config, logger logging.Logger) *TreeManager {
	return &TreeManager{
		db:          db,
		repomanager: repomanager,
		store:       store,
		paths:       paths,
		versions:    versions,
		quota:       quota,
		config:      config,
		logger:      logger,
		locks:       newOwnerLocks(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// GetOrCreateRootFolder returns the owner's root, creating it (and the
// owner's physical directory) on first access. Concurrent callers all get
// the same row: the database admits a single root per owner and the losers
// of the insert race read the winner's row.
func (s *TreeManager) GetOrCreateRootFolder(ctx context.Context, owner string) (*models.Folder, error) {
	if err := validateName(owner); err != nil {
		return nil, err
	}

	repo := s.repomanager.Folders(s.db)
	root, err := repo.GetRoot(ctx, owner)
	if err == nil {
		return root, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	if _, err := s.store.CreateDir(ctx, owner, nil); err != nil {
		return nil, err
	}

	now := s.now()
	root = &models.Folder{
		ID:        uuid.NewString(),
		Name:      owner,
		OwnerID:   owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	inserted, err := repo.InsertRoot(ctx, root)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return repo.GetRoot(ctx, owner)
	}

	s.logger.Info(ctx, "root folder created", "owner", owner, "folder_id", root.ID)
	return root, nil
}

// resolveParent returns the folder parentID names when it is an owned,
// active folder and the owner's root otherwise.
func (s *TreeManager) resolveParent(ctx context.Context, owner string, parentID *string) (*models.Folder, error) {
	if parentID != nil && *parentID != "" {
		f, err := s.repomanager.Folders(s.db).GetByID(ctx, owner, *parentID)
		switch {
		case err == nil && !f.IsDeleted:
			return f, nil
		case err != nil && !errors.Is(err, common.ErrorNotFound):
			return nil, err
		}
	}
	return s.GetOrCreateRootFolder(ctx, owner)
}

// CreateFolder adds a folder below req.ParentID. Sibling folders may share
// a name.
func (s *TreeManager) CreateFolder(ctx context.Context, req CreateFolderRequest) (*models.Folder, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(req.Owner)
	defer unlock()

	parent, err := s.resolveParent(ctx, req.Owner, req.ParentID)
	if err != nil {
		return nil, err
	}
	dir, err := s.paths.RelativeDir(ctx, parent)
	if err != nil {
		return nil, err
	}
	if err := s.paths.CheckDepth(len(dir) + 1); err != nil {
		return nil, err
	}
	if _, err := s.store.CreateDir(ctx, req.Owner, append(dir, req.Name)); err != nil {
		return nil, err
	}

	now := s.now()
	folder := &models.Folder{
		ID:        uuid.NewString(),
		Name:      req.Name,
		ParentID:  &parent.ID,
		OwnerID:   req.Owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repomanager.Folders(s.db).Create(ctx, folder); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "folder created", "owner", req.Owner, "folder_id", folder.ID, "parent_id", parent.ID)
	return folder, nil
}

func (s *TreeManager) checkExtension(name string) error {
	if len(s.config.AllowedExtensions) == 0 {
		return nil
	}
	ext := models.ExtensionOf(name)
	if slices.Contains(s.config.AllowedExtensions, ext) {
		return nil
	}
	return fmt.Errorf("%w: %q", common.ErrExtensionNotAllowed, ext)
}

func (s *TreeManager) checkSize(size int64) error {
	if s.config.MaxFileSize > 0 && size > s.config.MaxFileSize {
		return fmt.Errorf("%w: %d > %d bytes", common.ErrFileTooLarge, size, s.config.MaxFileSize)
	}
	return nil
}

// UploadFile stores new content under req.Name in req.ParentID. An active
// file with the same name in that folder is overwritten: its previous
// content becomes a version and the row is updated in place.
//
// Content is written before metadata is committed. If the commit fails the
// written object is left behind and logged.
func (s *TreeManager) UploadFile(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	if err := s.checkExtension(req.Name); err != nil {
		return nil, err
	}
	if err := s.checkSize(req.Size); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(req.Owner)
	defer unlock()

	parent, err := s.resolveParent(ctx, req.Owner, req.ParentID)
	if err != nil {
		return nil, err
	}

	content, size := req.Content, req.Size
	if size < 0 {
		tmp, n, cleanup, err := spool(content, s.config.MaxFileSize)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		content, size = tmp, n
	}

	ok, err := s.quota.HasCapacity(ctx, req.Owner, size)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d more bytes for %s", common.ErrQuotaExceeded, size, req.Owner)
	}

	contentType, content, err := detectContentType(content)
	if err != nil {
		return nil, err
	}

	dir, err := s.paths.RelativeDir(ctx, parent)
	if err != nil {
		return nil, err
	}
	obj, err := s.store.Save(ctx, storage.Destination{Owner: req.Owner, Dir: dir, Name: req.Name}, content, size)
	if err != nil {
		return nil, err
	}

	result := &UploadResult{}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Files(tx)
		now := s.now()

		existing, err := repo.FindActiveByName(ctx, req.Owner, parent.ID, req.Name)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		if existing != nil {
			snap, err := s.versions.SnapshotCurrent(ctx, tx, existing, req.Owner, req.Comment)
			if err != nil {
				return err
			}
			existing.Size = obj.Size
			existing.Checksum = obj.Checksum
			existing.StorageKey = obj.Key
			existing.ContentType = contentType
			existing.UpdatedAt = now
			if err := repo.UpdateContent(ctx, existing); err != nil {
				return err
			}
			result.File = existing
			result.Version = snap.VersionNumber + 1
			return nil
		}

		f := &models.File{
			ID:          uuid.NewString(),
			Name:        req.Name,
			Extension:   models.ExtensionOf(req.Name),
			ContentType: contentType,
			Size:        obj.Size,
			Checksum:    obj.Checksum,
			StorageKey:  obj.Key,
			FolderID:    &parent.ID,
			OwnerID:     req.Owner,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := repo.Create(ctx, f); err != nil {
			return err
		}
		result.File = f
		result.Version = 1
		result.Created = true
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "upload metadata commit failed, stored object orphaned",
			"owner", req.Owner, "storage_key", obj.Key, "error", err)
		return nil, err
	}

	s.logger.Info(ctx, "file uploaded", "owner", req.Owner, "file_id", result.File.ID,
		"version", result.Version, "size", obj.Size)
	return result, nil
}

// lookupNode finds an owned folder or file by id, deleted ones included.
func (s *TreeManager) lookupNode(ctx context.Context, db dbx.DBTX, owner, id string) (*models.Node, error) {
	folder, err := s.repomanager.Folders(db).GetByID(ctx, owner, id)
	if err == nil {
		return models.FolderNode(folder), nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	file, err := s.repomanager.Files(db).GetByID(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	return models.FileNode(file), nil
}

// activeNode is lookupNode restricted to non-deleted entities.
func (s *TreeManager) activeNode(ctx context.Context, db dbx.DBTX, owner, id string) (*models.Node, error) {
	node, err := s.lookupNode(ctx, db, owner, id)
	if err != nil {
		return nil, err
	}
	if (node.Kind == models.NodeFolder && node.Folder.IsDeleted) || (node.Kind == models.NodeFile && node.File.IsDeleted) {
		return nil, common.ErrorNotFound
	}
	return node, nil
}

// checkFileName fails with ErrNameConflict if another active file in
// folderID already uses name.
func (s *TreeManager) checkFileName(ctx context.Context, db dbx.DBTX, owner, folderID, name, selfID string) error {
	other, err := s.repomanager.Files(db).FindActiveByName(ctx, owner, folderID, name)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return nil
	case err != nil:
		return err
	case other.ID != selfID:
		return fmt.Errorf("%w: %q", common.ErrNameConflict, name)
	}
	return nil
}

// Rename changes the name of a folder or file. Stored content is not
// touched. The root folder keeps the owner's name.
func (s *TreeManager) Rename(ctx context.Context, owner, entityID, newName string) (*models.Node, error) {
	if err := validateName(newName); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(owner)
	defer unlock()

	var result *models.Node
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		node, err := s.activeNode(ctx, tx, owner, entityID)
		if err != nil {
			return err
		}
		now := s.now()

		if node.Kind == models.NodeFolder {
			if node.Folder.IsRoot() {
				return fmt.Errorf("%w: root folder cannot be renamed", common.ErrInvalidTarget)
			}
			if err := s.repomanager.Folders(tx).Rename(ctx, owner, entityID, newName, now); err != nil {
				return err
			}
			node.Folder.Name = newName
			node.Folder.UpdatedAt = now
			result = node
			return nil
		}

		if node.File.FolderID != nil {
			if err := s.checkFileName(ctx, tx, owner, *node.File.FolderID, newName, entityID); err != nil {
				return err
			}
		}
		ext := models.ExtensionOf(newName)
		if err := s.repomanager.Files(tx).Rename(ctx, owner, entityID, newName, ext, now); err != nil {
			return err
		}
		node.File.Name = newName
		node.File.Extension = ext
		node.File.UpdatedAt = now
		result = node
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "renamed", "owner", owner, "id", entityID, "kind", result.Kind, "name", newName)
	return result, nil
}

// Move reparents a folder or file. A nil target means the owner's root.
// Folders cannot be moved below themselves.
func (s *TreeManager) Move(ctx context.Context, owner, entityID string, newParentID *string) (*models.Node, error) {
	unlock := s.locks.lock(owner)
	defer unlock()

	root, err := s.GetOrCreateRootFolder(ctx, owner)
	if err != nil {
		return nil, err
	}

	var result *models.Node
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		node, err := s.activeNode(ctx, tx, owner, entityID)
		if err != nil {
			return err
		}

		target := root
		if newParentID != nil {
			target, err = s.moveTarget(ctx, tx, owner, *newParentID)
			if err != nil {
				return err
			}
		}
		now := s.now()

		if node.Kind == models.NodeFolder {
			if node.Folder.IsRoot() {
				return fmt.Errorf("%w: root folder cannot be moved", common.ErrInvalidTarget)
			}
			paths := s.paths.With(tx)
			inside, err := paths.IsDescendant(ctx, target, node.Folder.ID)
			if err != nil {
				return err
			}
			if inside {
				return fmt.Errorf("%w: %s is inside %s", common.ErrCycleDetected, target.ID, node.Folder.ID)
			}
			depth, err := paths.Depth(ctx, target)
			if err != nil {
				return err
			}
			height, err := paths.Height(ctx, node.Folder)
			if err != nil {
				return err
			}
			if err := paths.CheckDepth(depth + 1 + height); err != nil {
				return err
			}
			if err := s.repomanager.Folders(tx).Move(ctx, owner, entityID, target.ID, now); err != nil {
				return err
			}
			node.Folder.ParentID = &target.ID
			node.Folder.UpdatedAt = now
			result = node
			return nil
		}

		if err := s.checkFileName(ctx, tx, owner, target.ID, node.File.Name, entityID); err != nil {
			return err
		}
		if err := s.repomanager.Files(tx).Move(ctx, owner, entityID, target.ID, now); err != nil {
			return err
		}
		node.File.FolderID = &target.ID
		node.File.UpdatedAt = now
		result = node
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "moved", "owner", owner, "id", entityID, "kind", result.Kind)
	return result, nil
}

// moveTarget loads an owned, active folder; a file id is ErrInvalidTarget.
func (s *TreeManager) moveTarget(ctx context.Context, db dbx.DBTX, owner, id string) (*models.Folder, error) {
	node, err := s.activeNode(ctx, db, owner, id)
	if err != nil {
		return nil, err
	}
	if node.Kind != models.NodeFolder {
		return nil, fmt.Errorf("%w: %s is a file", common.ErrInvalidTarget, id)
	}
	return node.Folder, nil
}

// Delete soft-deletes a file, or a folder with its whole subtree, in one
// transaction and then removes the affected content from storage.
// Deleting an already deleted entity succeeds without effect.
func (s *TreeManager) Delete(ctx context.Context, owner, entityID string) error {
	unlock := s.locks.lock(owner)
	defer unlock()

	var (
		keys []string
		dirs [][]string
		live [][]string
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		node, err := s.lookupNode(ctx, tx, owner, entityID)
		if err != nil {
			return err
		}
		now := s.now()

		if node.Kind == models.NodeFile {
			if node.File.IsDeleted {
				return nil
			}
			if node.File.FolderID != nil {
				folder, err := s.repomanager.Folders(tx).GetByID(ctx, owner, *node.File.FolderID)
				if err != nil {
					return err
				}
				dir, err := s.paths.With(tx).RelativeDir(ctx, folder)
				if err != nil {
					return err
				}
				live = append(live, dir)
			}
			keys, err = s.deleteFile(ctx, tx, node.File, now)
			return err
		}

		folder := node.Folder
		if folder.IsDeleted {
			return nil
		}
		if folder.IsRoot() {
			return fmt.Errorf("%w: root folder cannot be deleted", common.ErrInvalidTarget)
		}

		paths := s.paths.With(tx)
		subtree, err := paths.Subtree(ctx, folder, false)
		if err != nil {
			return err
		}
		for _, f := range subtree {
			files, err := s.repomanager.Files(tx).ListByFolder(ctx, owner, f.ID, false)
			if err != nil {
				return err
			}
			for _, file := range files {
				fileKeys, err := s.deleteFile(ctx, tx, file, now)
				if err != nil {
					return err
				}
				keys = append(keys, fileKeys...)
			}
			dir, err := paths.RelativeDir(ctx, f)
			if err != nil {
				return err
			}
			dirs = append(dirs, dir)
			if err := s.repomanager.Folders(tx).MarkDeleted(ctx, owner, f.ID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.removeContent(ctx, owner, keys, dirs, live); err != nil {
		return err
	}

	s.logger.Info(ctx, "deleted", "owner", owner, "id", entityID, "objects", len(keys))
	return nil
}

// deleteFile marks file deleted and returns the storage keys it held.
func (s *TreeManager) deleteFile(ctx context.Context, tx dbx.DBTX, file *models.File, now time.Time) ([]string, error) {
	keys, err := s.versions.versionKeys(ctx, tx, file.ID)
	if err != nil {
		return nil, err
	}
	if err := s.repomanager.Files(tx).MarkDeleted(ctx, file.OwnerID, file.ID, now); err != nil {
		return nil, err
	}
	return append(keys, file.StorageKey), nil
}

// removeContent deletes objects and then prunes the emptied directories,
// deepest first: those that held keys written under an earlier folder name
// or location, then the current directories of deleted folders (dirs).
// live lists directories of folders known to stay.
// Failures do not stop the sweep; object failures are logged and returned
// together.
func (s *TreeManager) removeContent(ctx context.Context, owner string, keys []string, dirs, live [][]string) error {
	var errs []error
	for _, key := range keys {
		if _, err := s.store.Delete(ctx, key); err != nil {
			s.logger.Error(ctx, "failed to remove stored object", "owner", owner, "storage_key", key, "error", err)
			errs = append(errs, err)
		}
	}

	stale, err := s.staleDirs(ctx, owner, keys, append(slices.Clone(dirs), live...))
	if err != nil {
		s.logger.Warn(ctx, "failed to collect stale directories", "owner", owner, "error", err)
	}
	for _, dir := range stale {
		if _, err := s.store.PruneKeyDir(ctx, dir); err != nil {
			s.logger.Warn(ctx, "failed to remove stale directory", "owner", owner, "dir", dir, "error", err)
		}
	}
	for i := len(dirs) - 1; i >= 0; i-- {
		if _, err := s.store.PruneDir(ctx, owner, dirs[i]); err != nil {
			s.logger.Warn(ctx, "failed to remove folder directory", "owner", owner, "dir", strings.Join(dirs[i], "/"), "error", err)
		}
	}
	return errors.Join(errs...)
}

// staleDirs returns the directory keys holding keys (and their parents
// below the owner directory) that neither appear in known nor belong to
// an active folder, deepest first.
func (s *TreeManager) staleDirs(ctx context.Context, owner string, keys []string, known [][]string) ([]string, error) {
	ownerKey, err := storage.DirKey(owner, nil)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{ownerKey: true}
	for _, dir := range known {
		for i := 1; i <= len(dir); i++ {
			key, err := storage.DirKey(owner, dir[:i])
			if err != nil {
				return nil, err
			}
			seen[key] = true
		}
	}

	var candidates []string
	for _, key := range keys {
		for dir := path.Dir(key); strings.HasPrefix(dir, ownerKey+"/"); dir = path.Dir(dir) {
			if !seen[dir] {
				seen[dir] = true
				candidates = append(candidates, dir)
			}
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	active, err := s.activeDirs(ctx, owner, ownerKey)
	if err != nil {
		return nil, err
	}
	candidates = slices.DeleteFunc(candidates, func(dir string) bool { return active[dir] })
	slices.SortFunc(candidates, func(a, b string) int {
		return strings.Count(b, "/") - strings.Count(a, "/")
	})
	return candidates, nil
}

// activeDirs maps the directory key of every active folder of owner.
func (s *TreeManager) activeDirs(ctx context.Context, owner, ownerKey string) (map[string]bool, error) {
	root, err := s.repomanager.Folders(s.db).GetRoot(ctx, owner)
	if errors.Is(err, common.ErrorNotFound) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, err
	}
	subtree, err := s.paths.Subtree(ctx, root, false)
	if err != nil {
		return nil, err
	}

	// breadth-first order puts parents before children
	byID := map[string]string{root.ID: ownerKey}
	active := map[string]bool{ownerKey: true}
	for _, f := range subtree[1:] {
		parent, ok := byID[*f.ParentID]
		if !ok {
			continue
		}
		name, err := storage.SanitizeName(f.Name)
		if err != nil {
			return nil, err
		}
		byID[f.ID] = parent + "/" + name
		active[byID[f.ID]] = true
	}
	return active, nil
}

// folderOrRoot loads an owned folder, or the root when folderID is nil.
func (s *TreeManager) folderOrRoot(ctx context.Context, owner string, folderID *string, includeDeleted bool) (*models.Folder, error) {
	if folderID == nil {
		return s.GetOrCreateRootFolder(ctx, owner)
	}
	f, err := s.repomanager.Folders(s.db).GetByID(ctx, owner, *folderID)
	if err != nil {
		return nil, err
	}
	if f.IsDeleted && !includeDeleted {
		return nil, common.ErrorNotFound
	}
	return f, nil
}

func (s *TreeManager) children(ctx context.Context, owner, folderID string, includeDeleted bool) (*models.Listing, error) {
	folders, err := s.repomanager.Folders(s.db).ListChildren(ctx, owner, folderID, includeDeleted)
	if err != nil {
		return nil, err
	}
	files, err := s.repomanager.Files(s.db).ListByFolder(ctx, owner, folderID, includeDeleted)
	if err != nil {
		return nil, err
	}
	return &models.Listing{Folders: folders, Files: files}, nil
}

// ListChildren lists the direct children of parentID (the root when nil).
func (s *TreeManager) ListChildren(ctx context.Context, owner string, parentID *string, includeDeleted bool) (*models.Listing, error) {
	parent, err := s.folderOrRoot(ctx, owner, parentID, includeDeleted)
	if err != nil {
		return nil, err
	}
	return s.children(ctx, owner, parent.ID, includeDeleted)
}

// FolderDetails returns a folder with its resolved path, computed size and
// children. A nil folderID selects the root.
func (s *TreeManager) FolderDetails(ctx context.Context, owner string, folderID *string, includeDeleted bool) (*FolderDetails, error) {
	folder, err := s.folderOrRoot(ctx, owner, folderID, includeDeleted)
	if err != nil {
		return nil, err
	}
	names, err := s.paths.ResolvePath(ctx, folder)
	if err != nil {
		return nil, err
	}
	size, err := s.paths.ComputeSize(ctx, folder)
	if err != nil {
		return nil, err
	}
	children, err := s.children(ctx, owner, folder.ID, includeDeleted)
	if err != nil {
		return nil, err
	}
	return &FolderDetails{Folder: folder, Path: FormatPath(names), Size: size, Children: children}, nil
}

// FindFolderByPath walks "a/b/c" from the root. A leading slash means the
// path starts with the root's own name, as produced by FormatPath. Among
// same-named siblings the oldest wins.
func (s *TreeManager) FindFolderByPath(ctx context.Context, owner, path string) (*models.Folder, error) {
	root, err := s.GetOrCreateRootFolder(ctx, owner)
	if err != nil {
		return nil, err
	}

	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if strings.HasPrefix(path, "/") && len(parts) > 0 {
		if parts[0] != root.Name {
			return nil, common.ErrorNotFound
		}
		parts = parts[1:]
	}

	repo := s.repomanager.Folders(s.db)
	cur := root
	for _, name := range parts {
		cur, err = repo.FindChildByName(ctx, owner, cur.ID, name)
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// GetFile returns an owned, active file.
func (s *TreeManager) GetFile(ctx context.Context, owner, fileID string) (*models.File, error) {
	f, err := s.repomanager.Files(s.db).GetByID(ctx, owner, fileID)
	if err != nil {
		return nil, err
	}
	if f.IsDeleted {
		return nil, common.ErrorNotFound
	}
	return f, nil
}

// OpenFile returns an owned file with its current content.
func (s *TreeManager) OpenFile(ctx context.Context, owner, fileID string) (*models.File, io.ReadCloser, error) {
	f, err := s.GetFile(ctx, owner, fileID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Open(ctx, f.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return f, rc, nil
}

// DownloadURL returns a time-limited URL for the file's current content
// when the storage backend can sign one.
func (s *TreeManager) DownloadURL(ctx context.Context, owner, fileID string) (string, error) {
	f, err := s.GetFile(ctx, owner, fileID)
	if err != nil {
		return "", err
	}
	return s.store.URL(ctx, f.StorageKey, s.config.DownloadURLExpiry)
}

// SetFavorite flags or unflags an owned file.
func (s *TreeManager) SetFavorite(ctx context.Context, owner, fileID string, favorite bool) (*models.File, error) {
	unlock := s.locks.lock(owner)
	defer unlock()

	f, err := s.GetFile(ctx, owner, fileID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.repomanager.Files(s.db).SetFavorite(ctx, owner, fileID, favorite, now); err != nil {
		return nil, err
	}
	f.IsFavorite = favorite
	f.UpdatedAt = now
	return f, nil
}

// VerifyFile re-hashes the stored content of a file and compares it with
// the recorded checksum.
func (s *TreeManager) VerifyFile(ctx context.Context, owner, fileID string) error {
	f, err := s.GetFile(ctx, owner, fileID)
	if err != nil {
		return err
	}
	return s.store.Verify(ctx, f.StorageKey, f.Checksum)
}

// TeardownOwner hard-deletes every row of the owner and removes the
// owner's whole storage prefix.
func (s *TreeManager) TeardownOwner(ctx context.Context, owner string) error {
	if err := validateName(owner); err != nil {
		return err
	}

	unlock := s.locks.lock(owner)
	defer unlock()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Versions(tx).DeleteByOwner(ctx, owner); err != nil {
			return err
		}
		if _, err := s.repomanager.Files(tx).DeleteByOwner(ctx, owner); err != nil {
			return err
		}
		if _, err := s.repomanager.Folders(tx).DeleteByOwner(ctx, owner); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	prefix, err := storage.DirKey(owner, nil)
	if err != nil {
		return err
	}
	if _, err := s.store.Delete(ctx, prefix); err != nil {
		s.logger.Error(ctx, "failed to remove owner storage", "owner", owner, "storage_key", prefix, "error", err)
		return err
	}

	s.logger.Info(ctx, "owner removed", "owner", owner)
	return nil
}
