// Package gdrive stores backups as files in a Google Drive folder, using a
// service account.
package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"housebot/internal/blob/core"
)

// keyProperty is the appProperties entry holding the object key. Drive names
// are not unique, so lookups go through this property.
const keyProperty = "housebot_key"

const fileFields googleapi.Field = "id, name, size, mimeType, modifiedTime, md5Checksum, appProperties"

const listFields googleapi.Field = "nextPageToken, files(id, name, size, mimeType, modifiedTime, md5Checksum, appProperties)"

// Config configures the Drive backend.
type Config struct {
	// CredentialsJSON is a service account key file.
	CredentialsJSON []byte
	// FolderID is the Drive folder receiving backups; the service account
	// needs write access to it.
	FolderID string
	// Endpoint and HTTPClient override the API location and transport (tests).
	Endpoint   string
	HTTPClient *http.Client
}

// Store implements core.Store on one Drive folder.
type Store struct {
	files    *drive.FilesService
	folderID string
}

// New authenticates and returns the store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.FolderID == "" {
		return nil, fmt.Errorf("google drive folder id required")
	}
	var opts []option.ClientOption
	switch {
	case cfg.HTTPClient != nil:
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	case len(cfg.CredentialsJSON) > 0:
		opts = append(opts, option.WithCredentialsJSON(cfg.CredentialsJSON), option.WithScopes(drive.DriveFileScope))
	default:
		return nil, fmt.Errorf("google drive credentials required")
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google drive client: %w", err)
	}
	return &Store{files: svc.Files, folderID: cfg.FolderID}, nil
}

// Driver returns core.DriverGoogleDrive.
func (s *Store) Driver() core.Driver { return core.DriverGoogleDrive }

// Put creates a file named after the last key segment.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	if _, err := s.find(ctx, key); err == nil {
		return core.Info{}, fmt.Errorf("put %s: %w", key, core.ErrExists)
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.Info{}, err
	}
	props := core.CloneMetadata(opts.Metadata)
	if props == nil {
		props = make(map[string]string, 1)
	}
	props[keyProperty] = key
	meta := &drive.File{
		Name:          path.Base(key),
		Parents:       []string{s.folderID},
		MimeType:      opts.ContentType,
		AppProperties: props,
	}
	call := s.files.Create(meta).Fields(fileFields).Context(ctx)
	if opts.ContentType != "" {
		call = call.Media(r, googleapi.ContentType(opts.ContentType))
	} else {
		call = call.Media(r)
	}
	f, err := call.Do()
	if err != nil {
		return core.Info{}, fmt.Errorf("put %s: %w", key, err)
	}
	return fileInfo(f), nil
}

// Get downloads the file content.
func (s *Store) Get(ctx context.Context, key string) (core.Info, io.ReadCloser, error) {
	f, err := s.find(ctx, key)
	if err != nil {
		return core.Info{}, nil, err
	}
	resp, err := s.files.Get(f.Id).Context(ctx).Download()
	if err != nil {
		return core.Info{}, nil, fmt.Errorf("get %s: %w", key, err)
	}
	return fileInfo(f), resp.Body, nil
}

// Head looks the file up by key.
func (s *Store) Head(ctx context.Context, key string) (core.Info, error) {
	f, err := s.find(ctx, key)
	if err != nil {
		return core.Info{}, err
	}
	return fileInfo(f), nil
}

// Delete removes the file permanently.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	f, err := s.find(ctx, key)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := s.files.Delete(f.Id).Context(ctx).Do(); err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	return true, nil
}

// List returns every file of the folder whose key starts with prefix. Files
// without the key property (uploaded by hand) are listed under their name.
func (s *Store) List(ctx context.Context, prefix string) ([]core.Info, error) {
	var infos []core.Info
	err := s.files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed = false", quote(s.folderID))).
		Fields(listFields).
		Context(ctx).
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				info := fileInfo(f)
				if strings.HasPrefix(info.Key, prefix) {
					infos = append(infos, info)
				}
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (s *Store) find(ctx context.Context, key string) (*drive.File, error) {
	q := fmt.Sprintf("'%s' in parents and trashed = false and appProperties has { key='%s' and value='%s' }",
		quote(s.folderID), keyProperty, quote(key))
	list, err := s.files.List().Q(q).Fields(listFields).PageSize(1).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", key, err)
	}
	if len(list.Files) == 0 {
		return nil, fmt.Errorf("lookup %s: %w", key, core.ErrNotFound)
	}
	return list.Files[0], nil
}

func fileInfo(f *drive.File) core.Info {
	key := f.AppProperties[keyProperty]
	if key == "" {
		key = f.Name
	}
	md := make(map[string]string, len(f.AppProperties))
	for k, v := range f.AppProperties {
		if k != keyProperty {
			md[k] = v
		}
	}
	if len(md) == 0 {
		md = nil
	}
	modified, _ := time.Parse(time.RFC3339, f.ModifiedTime)
	return core.Info{
		Key:          key,
		Size:         f.Size,
		ContentType:  f.MimeType,
		ETag:         f.Md5Checksum,
		Metadata:     md,
		LastModified: modified,
	}
}

// quote escapes a value for a Drive query string literal.
func quote(v string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
}
