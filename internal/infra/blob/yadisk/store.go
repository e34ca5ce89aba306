// Package yadisk stores backups on Yandex Disk through its REST API.
package yadisk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"housebot/internal/blob/core"
)

// DefaultBaseURL is the public REST endpoint.
const DefaultBaseURL = "https://cloud-api.yandex.net/v1/disk"

const pageSize = 100

// Config configures the Yandex Disk backend.
type Config struct {
	// Token is an OAuth token with disk read/write scope.
	Token string
	// Root prefixes every key, default "disk:/".
	Root string
	// BaseURL and HTTPClient override the API location and transport (tests).
	BaseURL    string
	HTTPClient *http.Client
}

// Store implements core.Store on a Yandex Disk account.
type Store struct {
	token   string
	root    string
	baseURL string
	client  *http.Client
}

// New returns the store; the token is required.
func New(cfg Config) (*Store, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("yandex disk token required")
	}
	s := &Store{token: cfg.Token, root: cfg.Root, baseURL: strings.TrimRight(cfg.BaseURL, "/"), client: cfg.HTTPClient}
	if s.root == "" {
		s.root = "disk:/"
	}
	if s.baseURL == "" {
		s.baseURL = DefaultBaseURL
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: time.Minute}
	}
	return s, nil
}

// Driver returns core.DriverYandexDisk.
func (s *Store) Driver() core.Driver { return core.DriverYandexDisk }

// APIError is a non-success response from the REST API.
type APIError struct {
	Status      int
	Code        string `json:"error"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("yandex disk: status %d", e.Status)
	}
	return fmt.Sprintf("yandex disk: status %d: %s: %s", e.Status, e.Code, e.Description)
}

type link struct {
	Href   string `json:"href"`
	Method string `json:"method"`
}

type resource struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Type     string `json:"type"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
	Modified string `json:"modified"`
	MD5      string `json:"md5"`
	Embedded *struct {
		Items []resource `json:"items"`
		Total int        `json:"total"`
	} `json:"_embedded"`
}

func (s *Store) remotePath(key string) string {
	return strings.TrimSuffix(s.root, "/") + "/" + strings.TrimPrefix(key, "/")
}

func (s *Store) keyOf(remote string) string {
	return strings.TrimPrefix(strings.TrimPrefix(remote, strings.TrimSuffix(s.root, "/")), "/")
}

func (r resource) info(key string) core.Info {
	modified, _ := time.Parse(time.RFC3339, r.Modified)
	return core.Info{Key: key, Size: r.Size, ContentType: r.MimeType, ETag: r.MD5, LastModified: modified}
}

// Put requests an upload link and PUTs the content to it.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	if _, err := s.Head(ctx, key); err == nil {
		return core.Info{}, fmt.Errorf("put %s: %w", key, core.ErrExists)
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.Info{}, err
	}
	if err := s.ensureDir(ctx, path.Dir(key)); err != nil {
		return core.Info{}, fmt.Errorf("put %s: %w", key, err)
	}
	var up link
	q := url.Values{"path": {s.remotePath(key)}, "overwrite": {"false"}}
	if err := s.call(ctx, http.MethodGet, "/resources/upload", q, &up); err != nil {
		return core.Info{}, fmt.Errorf("put %s: upload link: %w", key, err)
	}
	method := up.Method
	if method == "" {
		method = http.MethodPut
	}
	req, err := http.NewRequestWithContext(ctx, method, up.Href, r)
	if err != nil {
		return core.Info{}, err
	}
	if opts.ContentType != "" {
		req.Header.Set("Content-Type", opts.ContentType)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return core.Info{}, fmt.Errorf("put %s: %w", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return core.Info{}, fmt.Errorf("put %s: %w", key, decodeError(resp))
	}
	return s.Head(ctx, key)
}

// Get resolves a download link and streams it.
func (s *Store) Get(ctx context.Context, key string) (core.Info, io.ReadCloser, error) {
	info, err := s.Head(ctx, key)
	if err != nil {
		return core.Info{}, nil, err
	}
	var down link
	if err := s.call(ctx, http.MethodGet, "/resources/download", url.Values{"path": {s.remotePath(key)}}, &down); err != nil {
		return core.Info{}, nil, fmt.Errorf("get %s: download link: %w", key, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, down.Href, nil)
	if err != nil {
		return core.Info{}, nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return core.Info{}, nil, fmt.Errorf("get %s: %w", key, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return core.Info{}, nil, fmt.Errorf("get %s: %w", key, decodeError(resp))
	}
	return info, resp.Body, nil
}

// Head fetches resource metadata.
func (s *Store) Head(ctx context.Context, key string) (core.Info, error) {
	var res resource
	q := url.Values{"path": {s.remotePath(key)}, "fields": {"name,path,type,size,mime_type,modified,md5"}}
	if err := s.call(ctx, http.MethodGet, "/resources", q, &res); err != nil {
		return core.Info{}, wrap("head", key, err)
	}
	if res.Type == "dir" {
		return core.Info{}, fmt.Errorf("head %s: is a directory", key)
	}
	return res.info(key), nil
}

// Delete removes the resource permanently, bypassing the trash.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	q := url.Values{"path": {s.remotePath(key)}, "permanently": {"true"}}
	err := s.call(ctx, http.MethodDelete, "/resources", q, nil)
	if err == nil {
		return true, nil
	}
	if err = wrap("delete", key, err); errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// List returns the files in the directory named by prefix (up to its last
// slash) whose keys start with prefix. Subdirectories are not descended.
func (s *Store) List(ctx context.Context, prefix string) ([]core.Info, error) {
	dir := strings.TrimSuffix(prefix, "/")
	if !strings.HasSuffix(prefix, "/") {
		dir = path.Dir(prefix)
	}
	if dir == "." {
		dir = ""
	}
	var infos []core.Info
	for offset := 0; ; offset += pageSize {
		var res resource
		q := url.Values{"path": {s.remotePath(dir)}, "limit": {strconv.Itoa(pageSize)}, "offset": {strconv.Itoa(offset)}}
		if err := s.call(ctx, http.MethodGet, "/resources", q, &res); err != nil {
			if err = wrap("list", prefix, err); errors.Is(err, core.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		if res.Embedded == nil {
			break
		}
		for _, item := range res.Embedded.Items {
			key := s.keyOf(item.Path)
			if item.Type == "file" && strings.HasPrefix(key, prefix) {
				infos = append(infos, item.info(key))
			}
		}
		if len(res.Embedded.Items) < pageSize {
			break
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// ensureDir creates every missing directory along dir.
func (s *Store) ensureDir(ctx context.Context, dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	current := ""
	for _, segment := range strings.Split(dir, "/") {
		if segment == "" {
			continue
		}
		current = path.Join(current, segment)
		err := s.call(ctx, http.MethodPut, "/resources", url.Values{"path": {s.remotePath(current)}}, nil)
		var apiErr *APIError
		if err != nil && !(errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict) {
			return fmt.Errorf("create folder %s: %w", current, err)
		}
	}
	return nil
}

func (s *Store) call(ctx context.Context, method, endpoint string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "OAuth "+s.token)
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(body, apiErr)
	return apiErr
}

func wrap(op, key string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", op, key, core.ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", op, key, err)
}
