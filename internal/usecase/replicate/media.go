package replicate

import (
	"fmt"
	"path/filepath"
	"strings"

	"tg-reviewer/internal/domain"
)

// scratchName выбирает имя временного файла: исходное имя вложения или media_{id}{ext}.
// Имя должно оставаться внутри каталога прогона, иначе используется запасное.
func scratchName(messageID int64, att domain.Attachment) string {
	if name := filepath.Base(strings.TrimSpace(att.FileName)); name != "." && filepath.IsLocal(name) {
		return name
	}
	return fmt.Sprintf("media_%d%s", messageID, extension(att))
}

func extension(att domain.Attachment) string {
	switch att.Kind {
	case domain.AttachmentPhoto:
		return ".jpg"
	case domain.AttachmentDocument:
		mime := strings.ToLower(att.MimeType)
		switch {
		case strings.Contains(mime, "video"):
			return ".mp4"
		case strings.Contains(mime, "audio"):
			return ".mp3"
		case strings.Contains(mime, "image"):
			switch {
			case strings.Contains(mime, "png"):
				return ".png"
			case strings.Contains(mime, "gif"):
				return ".gif"
			case strings.Contains(mime, "webp"):
				return ".webp"
			default:
				return ".jpg"
			}
		default:
			return ".bin"
		}
	default:
		return ""
	}
}

func uploadCaption(name string) string {
	return fmt.Sprintf("媒體檔案 (%s)", name)
}
