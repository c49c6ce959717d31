// Package blobjob downloads the objects under a bucket prefix into a
// local directory, one object per work item.
//
// A Downloader is a parproc.Processor[Object]:
//
//	d, err := blobjob.Open(ctx, "s3://bucket?region=eu-west-1", blobjob.Options{
//	    Prefix: "logs/",
//	    Dest:   "./logs",
//	})
//	if err != nil { ... }
//	defer d.Close()
//	if err := d.Lock(); err != nil { ... }
//	sum, err := parproc.Run[blobjob.Object](ctx, d, opts)
//
// Existing files are skipped unless Options.Overwrite is set. Objects
// deleted between listing and copying are counted as missing instead of
// being retried.
package blobjob
