// Package s3 provides an output.Writer that stores decompilation results
// in Amazon S3.
//
// Folder results become objects below their folder key. Archive results
// are assembled in memory and uploaded as a single object when the archive
// is closed, using multipart uploads for large archives.
//
// # Usage
//
//	store, err := s3.NewDefaultStore(ctx, "my-bucket",
//	    func(o *s3.StoreOptions) {
//	        o.Prefix = "decompiled/"
//	    },
//	)
//
// # Features
//
//   - Multipart uploads for large archives
//   - CRC32C integrity validation
//   - Optional upload throughput limiting
//   - Configurable prefix for multi-tenant isolation
package s3
