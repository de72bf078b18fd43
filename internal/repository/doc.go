// Package repository defines the artifact model and the Repository contract
// used to publish built modules and read them back for verification.
//
// Implementations live in subpackages: dir (plain directory tree), oci (OCI
// layout or remote registry through oras-go) and s3 (minio-go).
package repository
