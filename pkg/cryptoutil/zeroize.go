package cryptoutil

// ZeroizeBytes overwrites buf with zeros in place. Callers use it to scrub
// a decrypted Record's outer JSON buffer once the fields they need have
// been copied out by json.Unmarshal.
func ZeroizeBytes(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
