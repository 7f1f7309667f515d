package source

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"testing"
)

// testJPEG encodes a small valid JPEG.
func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindNone, "none"},
		{KindCamera, "camera"},
		{KindImage, "image"},
		{KindStream, "stream"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestOpenImage(t *testing.T) {
	data := testJPEG(t, 64, 48)

	img, err := OpenImage(data)
	if err != nil {
		t.Fatalf("OpenImage() err = %v", err)
	}
	defer img.Release()

	if img.Kind() != KindImage {
		t.Errorf("Kind() = %v, want %v", img.Kind(), KindImage)
	}

	frame, err := img.CurrentFrame()
	if err != nil {
		t.Fatalf("CurrentFrame() err = %v", err)
	}
	if frame.Width != 64 || frame.Height != 48 {
		t.Errorf("frame dims = %dx%d, want 64x48", frame.Width, frame.Height)
	}

	// Static source: every read returns the same bytes.
	again, err := img.CurrentFrame()
	if err != nil {
		t.Fatalf("second CurrentFrame() err = %v", err)
	}
	if !bytes.Equal(frame.Data, again.Data) {
		t.Error("CurrentFrame() bytes differ between calls")
	}
}

func TestOpenImage_CallerMutationDoesNotLeakIn(t *testing.T) {
	data := testJPEG(t, 32, 32)

	img, err := OpenImage(data)
	if err != nil {
		t.Fatalf("OpenImage() err = %v", err)
	}
	defer img.Release()

	// Corrupt the caller's buffer after opening.
	for i := range data {
		data[i] = 0
	}

	frame, err := img.CurrentFrame()
	if err != nil {
		t.Fatalf("CurrentFrame() err = %v", err)
	}
	if bytes.Equal(frame.Data, data) {
		t.Error("CurrentFrame() returned the caller's mutated buffer")
	}
}

func TestOpenImage_InvalidData(t *testing.T) {
	if _, err := OpenImage([]byte("not an image")); err == nil {
		t.Error("OpenImage(garbage) err = nil, want error")
	}
	if _, err := OpenImage(nil); err == nil {
		t.Error("OpenImage(nil) err = nil, want error")
	}
}

func TestImage_Release(t *testing.T) {
	img, err := OpenImage(testJPEG(t, 16, 16))
	if err != nil {
		t.Fatalf("OpenImage() err = %v", err)
	}

	if err := img.Release(); err != nil {
		t.Errorf("Release() err = %v", err)
	}
	if err := img.Release(); err != nil {
		t.Errorf("second Release() err = %v, want idempotent nil", err)
	}

	if _, err := img.CurrentFrame(); !errors.Is(err, ErrReleased) {
		t.Errorf("CurrentFrame() after release err = %v, want ErrReleased", err)
	}
}

func TestOpenImageFile_Missing(t *testing.T) {
	if _, err := OpenImageFile("/does/not/exist.jpg"); err == nil {
		t.Error("OpenImageFile(missing) err = nil, want error")
	}
}

func TestMock_RecordsCalls(t *testing.T) {
	m := NewMock(Frame{Data: []byte("jpeg"), Width: 10, Height: 10})

	if m.Kind() != KindCamera {
		t.Errorf("Kind() = %v, want %v", m.Kind(), KindCamera)
	}

	m.CurrentFrame()
	m.CurrentFrame()
	if got := m.FrameCalls(); got != 2 {
		t.Errorf("FrameCalls() = %d, want 2", got)
	}

	m.Release()
	if got := m.ReleaseCalls(); got != 1 {
		t.Errorf("ReleaseCalls() = %d, want 1", got)
	}
}
