package service

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"

	"beomusic_backend/internal/model"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeAvatar_CropsToSquareJPEG(t *testing.T) {
	data := pngBytes(t, 640, 320)

	out, err := NormalizeAvatar(AvatarUpload{Body: bytes.NewReader(data), Size: int64(len(data)), ContentType: "image/png"})
	if err != nil {
		t.Fatalf("NormalizeAvatar failed: %v", err)
	}

	img, err := imaging.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a decodable image: %v", err)
	}
	if b := img.Bounds(); b.Dx() != model.AvatarWidth || b.Dy() != model.AvatarHeight {
		t.Errorf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), model.AvatarWidth, model.AvatarHeight)
	}
}

func TestNormalizeAvatar_Rejects(t *testing.T) {
	valid := pngBytes(t, 10, 10)

	tests := []struct {
		name    string
		upload  AvatarUpload
		wantErr error
	}{
		{
			name:    "declared size over limit",
			upload:  AvatarUpload{Body: bytes.NewReader(valid), Size: model.MaxAvatarSizeBytes + 1, ContentType: "image/png"},
			wantErr: model.ErrFileTooLarge,
		},
		{
			name:    "unsupported type",
			upload:  AvatarUpload{Body: bytes.NewReader([]byte("%PDF-1.4")), Size: 8, ContentType: "application/pdf"},
			wantErr: model.ErrInvalidImageType,
		},
		{
			name:    "sniffed text",
			upload:  AvatarUpload{Body: bytes.NewReader([]byte("just some text")), Size: 14},
			wantErr: model.ErrInvalidImageType,
		},
		{
			name:    "claims png but corrupt",
			upload:  AvatarUpload{Body: bytes.NewReader([]byte("not a png")), Size: 9, ContentType: "image/png"},
			wantErr: model.ErrInvalidImageType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeAvatar(tt.upload)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
