// Copyright 2023 the DealerSync authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package vendorfeed provides access to the vendor-controlled SFTP endpoint
// that serves encrypted DMS exports.
package vendorfeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"path"
	"strings"
	"time"

	"github.com/chariotdata/dealersync/pkg/logging"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// encryptedSuffix marks vendor exports; the feed never exposes plaintext.
const encryptedSuffix = ".csv.gpg"

// FileInfo describes a single candidate export file in a dataset directory.
type FileInfo struct {
	// Name is the bare filename, e.g. DMS_VehicleSales_Export_2024-05-02.csv.gpg.
	Name string

	// ModTime is the remote modification timestamp.
	ModTime time.Time

	// Path is the full remote path used for retrieval.
	Path string
}

// Feed is the read surface the ingestion job consumes. Implementations must
// be safe for sequential use within a single run.
type Feed interface {
	// List returns the candidate export files for the named dataset. A
	// missing dataset directory is not an error; it returns an empty list.
	List(ctx context.Context, dataset string) ([]FileInfo, error)

	// Fetch retrieves the file at the given remote path.
	Fetch(ctx context.Context, remotePath string) ([]byte, error)

	// Close releases the underlying connection.
	Close() error
}

// Compile-time check to verify implements interface.
var _ Feed = (*Client)(nil)

// Client is an SFTP-backed Feed.
type Client struct {
	cfg    *Config
	conn   *ssh.Client
	client *sftp.Client
}

// Connect dials the vendor SFTP endpoint and returns a connected client.
// Callers must Close the client when the run finishes, on every exit path.
func Connect(ctx context.Context, cfg *Config) (*Client, error) {
	logger := logging.FromContext(ctx)

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	sshCfg := &ssh.ClientConfig{
		User: cfg.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(cfg.Password),
		},
		// Vendor endpoints rotate host keys without notice and publish no
		// fingerprints, so pinning is not practical here.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec
		Timeout:         cfg.DialTimeout,
	}

	conn, err := ssh.Dial("tcp", addr, sshCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create sftp client: %w", err)
	}

	logger.Infow("connected to vendor feed", "host", cfg.Host)
	return &Client{cfg: cfg, conn: conn, client: client}, nil
}

// List returns the candidate encrypted export files for the named dataset,
// with remote modification timestamps.
func (c *Client) List(ctx context.Context, dataset string) ([]FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := path.Join(c.cfg.BaseDirectory, dataset)
	entries, err := c.client.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), encryptedSuffix) {
			continue
		}
		files = append(files, FileInfo{
			Name:    entry.Name(),
			ModTime: entry.ModTime(),
			Path:    path.Join(dir, entry.Name()),
		})
	}
	return files, nil
}

// Fetch retrieves the file at the given remote path, bounded by the
// configured maximum file size.
func (c *Client) Fetch(ctx context.Context, remotePath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := c.client.Open(remotePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", remotePath, err)
	}
	defer f.Close()

	r := &io.LimitedReader{R: f, N: c.cfg.MaxFileBytes}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", remotePath, err)
	}
	if r.N == 0 {
		// Check if there's more data to be read and fail if so.
		if _, err := f.Read(make([]byte, 1)); !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read %s: file exceeds %d bytes", remotePath, c.cfg.MaxFileBytes)
		}
	}
	return b, nil
}

// Close releases the SFTP and SSH connections.
func (c *Client) Close() error {
	if err := c.client.Close(); err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to close sftp client: %w", err)
	}
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("failed to close ssh connection: %w", err)
	}
	return nil
}
