/*
Copyright © 2018 the InMAP authors.
This file is part of InMAP.

InMAP is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InMAP is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.
*/

package cloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// ErrNotFound is returned when a blob does not exist. It is not retried.
var ErrNotFound = errors.New("cloud: blob not found")

// Log receives retry messages. It defaults to the logrus standard logger.
var Log logrus.FieldLogger = logrus.StandardLogger()

// retry runs f with exponential backoff, giving up when ctx is done.
func retry(ctx context.Context, f func() error) error {
	return backoff.RetryNotify(
		f,
		backoff.WithContext(backoff.NewExponentialBackOff(), ctx),
		func(err error, d time.Duration) {
			Log.WithField("retry_in", d.String()).Warn(err)
		},
	)
}

// ReadBlob reads the blob at the given URL.
func ReadBlob(ctx context.Context, path string) ([]byte, error) {
	bucketName, key, err := SplitURL(path)
	if err != nil {
		return nil, err
	}
	bucket, err := OpenBucket(ctx, bucketName)
	if err != nil {
		return nil, err
	}
	defer bucket.Close()
	var b []byte
	err = retry(ctx, func() error {
		b, err = readBlob(ctx, bucket, key)
		return err
	})
	return b, err
}

// readBlob reads the given blob from the given bucket.
func readBlob(ctx context.Context, bucket *blob.Bucket, key string) ([]byte, error) {
	var b bytes.Buffer
	r, err := bucket.NewReader(ctx, key, nil)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrNotFound, key))
	} else if err != nil {
		return nil, fmt.Errorf("cloud: reading blob key %s: %v", key, err)
	}
	defer r.Close()
	if _, err = io.Copy(&b, r); err != nil {
		return nil, fmt.Errorf("cloud: reading blob key %s: %v", key, err)
	}
	return b.Bytes(), nil
}

// WriteBlob writes data to the blob at the given URL.
func WriteBlob(ctx context.Context, path string, data []byte) error {
	bucketName, key, err := SplitURL(path)
	if err != nil {
		return err
	}
	bucket, err := OpenBucket(ctx, bucketName)
	if err != nil {
		return err
	}
	defer bucket.Close()
	return retry(ctx, func() error {
		return writeBlob(ctx, bucket, key, data)
	})
}

// writeBlob writes the given data to the given bucket.
func writeBlob(ctx context.Context, bucket *blob.Bucket, key string, data []byte) error {
	w, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{})
	if err != nil {
		return fmt.Errorf("cloud: creating writer for blob %s: %v", key, err)
	}
	if _, err = io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Close()
		return fmt.Errorf("cloud: copying blob %s: %v", key, err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("cloud: writing blob %s: %v", key, err)
	}
	return nil
}

// Download copies the blob at the given URL, and any shapefile sidecar
// files that go with it, into dir. It returns the local path of the
// main file.
func Download(ctx context.Context, path, dir string) (string, error) {
	var local string
	for i, fname := range ExpandShp(path) {
		b, err := ReadBlob(ctx, fname)
		if err != nil {
			if i > 0 && errors.Is(err, ErrNotFound) {
				continue
			}
			return "", err
		}
		out := filepath.Join(dir, filepath.Base(fname))
		if err := ioutil.WriteFile(out, b, 0644); err != nil {
			return "", fmt.Errorf("cloud: saving download: %v", err)
		}
		if i == 0 {
			local = out
		}
	}
	return local, nil
}

// Upload copies the local file, and any shapefile sidecar files that
// go with it, to the blob at the given URL.
func Upload(ctx context.Context, local, path string) error {
	locals := ExpandShp(local)
	for i, dest := range ExpandShp(path) {
		b, err := ioutil.ReadFile(locals[i])
		if err != nil {
			if i > 0 && os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("cloud: reading file to upload: %v", err)
		}
		if err := WriteBlob(ctx, dest, b); err != nil {
			return err
		}
	}
	return nil
}

// ExpandShp returns the given file + associated [.dbf, .shx, .prj]
// files if the given file has the .shp extension, and returns the given
// file otherwise
func ExpandShp(filename string) []string {
	o := []string{filename}
	ext := filepath.Ext(filename)
	if ext != ".shp" {
		return o
	}
	for _, newExt := range []string{".dbf", ".shx", ".prj"} {
		o = append(o, filename[0:len(filename)-4]+newExt)
	}
	return o
}
