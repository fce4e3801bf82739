// SPDX-License-Identifier: Apache-2.0

package chihiros

// Checksum computes the running XOR over body[1:]. The caller passes the
// frame without its trailing checksum byte; byte 0 (the command id) is not
// covered.
func Checksum(body []byte) byte {
	if len(body) < 2 {
		return 0
	}
	c := body[1]
	for _, b := range body[2:] {
		c ^= b
	}
	return c
}
