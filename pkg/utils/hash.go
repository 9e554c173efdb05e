package utils

import (
	"crypto/md5"
	"fmt"
)

func HashString(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}

// ShortHash is used where a compact stable key is enough, e.g. redis keys.
func ShortHash(input string) string {
	return HashString(input)[:12]
}
