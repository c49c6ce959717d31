package blobjob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	lg "github.com/Andrej220/go-utils/zlog"
	"go.uber.org/multierr"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// ErrNoDest is returned by New when no destination directory is given.
var ErrNoDest = errors.New("blobjob: destination directory is required")

// Object is one item of the work list.
type Object struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// String names the object in logs.
func (o Object) String() string { return o.Key }

// Options configures a Downloader.
type Options struct {
	// Prefix restricts the work list to keys starting with it.
	Prefix string

	// Dest is the local directory objects are copied into, keyed by
	// their full object key.
	Dest string

	// Overwrite replaces files that already exist under Dest. When
	// false they are counted as skipped.
	Overwrite bool
}

// Stats counts what a Downloader has done so far.
type Stats struct {
	Copied  int64
	Skipped int64
	Missing int64
	Bytes   int64
}

// Downloader copies every object under a bucket prefix into a local
// directory. It implements parproc.Processor[Object].
type Downloader struct {
	bucket    *blob.Bucket
	ownBucket bool
	opts      Options
	lock      *destLock

	copied  atomic.Int64
	skipped atomic.Int64
	missing atomic.Int64
	bytes   atomic.Int64
}

// New returns a downloader reading from bucket. The caller keeps
// ownership of bucket.
func New(bucket *blob.Bucket, opts Options) (*Downloader, error) {
	if opts.Dest == "" {
		return nil, ErrNoDest
	}
	dest, err := filepath.Abs(opts.Dest)
	if err != nil {
		return nil, fmt.Errorf("blobjob: resolve dest: %w", err)
	}
	opts.Dest = dest
	return &Downloader{bucket: bucket, opts: opts}, nil
}

// Open opens the bucket at urlstr (s3://, gs://, file://, mem://) and
// returns a downloader that closes it on Close.
func Open(ctx context.Context, urlstr string, opts Options) (*Downloader, error) {
	bucket, err := blob.OpenBucket(ctx, urlstr)
	if err != nil {
		return nil, fmt.Errorf("blobjob: open bucket: %w", err)
	}
	d, err := New(bucket, opts)
	if err != nil {
		return nil, multierr.Append(err, bucket.Close())
	}
	d.ownBucket = true
	return d, nil
}

// Lock takes an exclusive lock on the destination directory so that
// two runs never write the same tree. It creates Dest if needed.
func (d *Downloader) Lock() error {
	if err := os.MkdirAll(d.opts.Dest, 0o755); err != nil {
		return fmt.Errorf("blobjob: create dest: %w", err)
	}
	l, err := lockDest(d.opts.Dest)
	if err != nil {
		return err
	}
	d.lock = l
	return nil
}

// Close releases the destination lock and, for Open, the bucket.
func (d *Downloader) Close() error {
	var err error
	if d.lock != nil {
		err = multierr.Append(err, d.lock.release())
		d.lock = nil
	}
	if d.ownBucket {
		err = multierr.Append(err, d.bucket.Close())
		d.ownBucket = false
	}
	return err
}

// Dest returns the absolute destination directory.
func (d *Downloader) Dest() string { return d.opts.Dest }

// WorkList lists every object under the prefix. Directory markers and
// keys that would escape Dest are left out.
func (d *Downloader) WorkList(ctx context.Context) ([]Object, error) {
	logger := lg.FromContext(ctx)
	logger.Info("Loading object list", lg.String("prefix", d.opts.Prefix))

	var objs []Object
	it := d.bucket.List(&blob.ListOptions{Prefix: d.opts.Prefix})
	for {
		attrs, err := it.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("blobjob: list %q: %w", d.opts.Prefix, err)
		}
		if attrs.IsDir || strings.HasSuffix(attrs.Key, "/") {
			continue
		}
		if _, ok := d.localPath(attrs.Key); !ok {
			logger.Error("Skipping object outside destination", lg.String("key", attrs.Key))
			continue
		}
		objs = append(objs, Object{Key: attrs.Key, Size: attrs.Size, ModTime: attrs.ModTime})
	}

	logger.Info("Loaded object list", lg.Int("objects", len(objs)))
	return objs, nil
}

// Process copies one object to Dest/<key>. The file is written under a
// temporary name and renamed into place, so a failed attempt never
// leaves a partial file that a later run would skip.
func (d *Downloader) Process(ctx context.Context, obj Object) error {
	logger := lg.FromContext(ctx).With(lg.String("key", obj.Key))

	path, ok := d.localPath(obj.Key)
	if !ok {
		return fmt.Errorf("blobjob: key %q escapes destination", obj.Key)
	}
	if !d.opts.Overwrite {
		if _, err := os.Stat(path); err == nil {
			d.skipped.Add(1)
			return nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("blobjob: create dir for %s: %w", obj.Key, err)
	}

	r, err := d.bucket.NewReader(ctx, obj.Key, nil)
	if err != nil {
		code := gcerrors.Code(err)
		if code == gcerrors.NotFound {
			// deleted since listing; retrying cannot help
			logger.Error("Object vanished", lg.String("code", code.String()))
			d.missing.Add(1)
			return nil
		}
		return fmt.Errorf("blobjob: open %s (%s): %w", obj.Key, code, err)
	}
	defer r.Close()

	n, err := writeFile(path, r)
	if err != nil {
		return fmt.Errorf("blobjob: copy %s: %w", obj.Key, err)
	}

	d.copied.Add(1)
	d.bytes.Add(n)
	logger.Info("Downloaded object", lg.Any("bytes", n))
	return nil
}

// Stats returns the counters accumulated so far.
func (d *Downloader) Stats() Stats {
	return Stats{
		Copied:  d.copied.Load(),
		Skipped: d.skipped.Load(),
		Missing: d.missing.Load(),
		Bytes:   d.bytes.Load(),
	}
}

// localPath maps key to a path under Dest. ok is false when the key
// would resolve outside of it.
func (d *Downloader) localPath(key string) (string, bool) {
	path := filepath.Join(d.opts.Dest, filepath.FromSlash(key))
	rel, err := filepath.Rel(d.opts.Dest, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return path, true
}

func writeFile(path string, r io.Reader) (n int64, err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.part")
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	n, err = io.Copy(tmp, r)
	err = multierr.Append(err, tmp.Close())
	if err != nil {
		return n, err
	}
	return n, os.Rename(tmp.Name(), path)
}
