package constants

import "strings"

// ImageExtensions are the suffixes recognized on the image token of a label line.
// Matching is case-sensitive, the same way label files have always been read.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp"}

// ResizableExtensions holds the extensions picked up when resizing a whole directory
// (lowercased, without '.').
var ResizableExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"bmp":  {},
	"tiff": {},
}

// ResizedSuffix is appended to the source stem of every normalized image.
const ResizedSuffix = "_resized"

// OutputExt is the extension of every normalized image; output is always JPEG.
const OutputExt = ".jpg"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// HasImageExt reports whether name ends with one of ImageExtensions.
func HasImageExt(name string) bool {
	for _, ext := range ImageExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// ContainsImageExt reports whether s mentions any of ImageExtensions anywhere.
func ContainsImageExt(s string) bool {
	for _, ext := range ImageExtensions {
		if strings.Contains(s, ext) {
			return true
		}
	}
	return false
}

// Dataset layout, relative to the output root.
const (
	ImagesDir       = "images"
	AnnotationsDir  = "annotations"
	MetadataDir     = "metadata"
	DatasetInfoFile = "dataset_info.json"
	CharDictFile    = "character_dict.txt"
)

// Report artifacts, relative to the report directory.
const (
	ValidationErrorsFile = "validation_errors.txt"
	SummaryFile          = "summary.txt"
	ValidationReportFile = "validation_report.txt"
	ResizeReportFile     = "resize_report.txt"
	ReportWorkbookFile   = "dataset_report.xlsx"
)

// AnnotationFile returns the annotation file name for a split.
func AnnotationFile(split Split) string {
	return string(split) + "_annotation.txt"
}
