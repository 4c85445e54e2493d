// Package objectstore keeps pages as objects in an S3 compatible bucket.
//
// Each page is stored under "<prefix>/<name>.<extension>". The MinIO client
// backs the default Bucket implementation:
//
//	client, err := objectstore.NewMinioClient(objectstore.ClientConfig{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store := objectstore.New(objectstore.NewMinioBucket(client, "wiki"), objectstore.DefaultConfig())
package objectstore
