package httpx

import "github.com/coalbin/dropvault/internal/domain"

func fileRecordToResponse(rec domain.FileRecord) fileResponse {
	return fileResponse{
		ID:           rec.ID.String(),
		OriginalName: rec.OriginalName,
		MimeType:     rec.MimeType,
		Size:         rec.Size,
		Hash:         rec.Hash,
		UploadedAt:   rec.UploadedAt,
		ExpiresAt:    rec.ExpiresAt,
		Metadata:     rec.Metadata,
	}
}
