// Package minio provides an output.Writer for MinIO and other
// S3-compatible object storage systems, using the official MinIO Go
// client.
//
// Folder results become objects below their folder key. Archive results
// are assembled in memory and uploaded as a single object when the archive
// is closed.
//
// # Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := miniosink.NewStore(client, "my-bucket")
//
// # Features
//
//   - Works with any S3-compatible storage (MinIO, Ceph, Garage, SeaweedFS)
//   - Air-gap friendly (no AWS dependencies required)
//   - Configurable prefix for multi-tenant isolation
package minio
