package s3

import "time"

// NewArchiveForTest builds an archive around a fake client and clock.
func NewArchiveForTest(client objectPutter, bucket string, now func() time.Time) *Archive {
	a := newArchive(client, bucket)
	a.now = now
	return a
}
