package imaging

// FrameSeq decodes an ordered batch of base64 frames one at a time, so a
// long recording never holds every raster in memory at once.
type FrameSeq struct {
	encoded  []string
	maxBytes int64
	next     int
}

// NewFrameSeq wraps a batch of base64-encoded frames.
func NewFrameSeq(encoded []string, maxBytes int64) *FrameSeq {
	return &FrameSeq{encoded: encoded, maxBytes: maxBytes}
}

// Len returns the total number of frames in the sequence.
func (s *FrameSeq) Len() int {
	return len(s.encoded)
}

// Next decodes and returns the next frame, or (nil, nil) when the sequence
// is exhausted. A decode failure stops iteration.
func (s *FrameSeq) Next() (*Image, error) {
	if s.next >= len(s.encoded) {
		return nil, nil
	}
	img, err := DecodeBase64(s.encoded[s.next], s.maxBytes)
	if err != nil {
		return nil, err
	}
	s.next++
	return img, nil
}
