package labels

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/joseph-ayodele/ocr-dataset-prep/constants"
	"github.com/joseph-ayodele/ocr-dataset-prep/internal/schema"
)

// Format recognizes one label-line layout. Parse receives a trimmed, non-empty line.
type Format interface {
	Name() constants.LabelFormat
	Parse(line string) (imageRef, text string, ok bool)
}

// tabFormat: "image<TAB>text", split on the first tab.
type tabFormat struct{}

func (tabFormat) Name() constants.LabelFormat { return constants.FormatTab }

func (tabFormat) Parse(line string) (string, string, bool) {
	ref, text, found := strings.Cut(line, "\t")
	if !found {
		return "", "", false
	}
	ref, text = strings.TrimSpace(ref), strings.TrimSpace(text)
	if ref == "" || text == "" {
		return "", "", false
	}
	return ref, text, true
}

// spaceFormat: "image text", accepted only if the first token ends with an image extension.
type spaceFormat struct{}

func (spaceFormat) Name() constants.LabelFormat { return constants.FormatSpace }

func (spaceFormat) Parse(line string) (string, string, bool) {
	ref, text, found := strings.Cut(line, " ")
	if !found {
		return "", "", false
	}
	ref, text = strings.TrimSpace(ref), strings.TrimSpace(text)
	if !constants.HasImageExt(ref) || text == "" {
		return "", "", false
	}
	return ref, text, true
}

// jsonFormat: {"image": "...", "text": "..."} on one line.
type jsonFormat struct{}

func (jsonFormat) Name() constants.LabelFormat { return constants.FormatJSON }

func (jsonFormat) Parse(line string) (string, string, bool) {
	if !strings.HasPrefix(line, "{") || !strings.HasSuffix(line, "}") {
		return "", "", false
	}
	if err := schema.ValidateLabelLine([]byte(line)); err != nil {
		return "", "", false
	}
	var obj struct {
		Image string `json:"image"`
		Text  string `json:"text"`
	}
	if err := json.Unmarshal([]byte(line), &obj); err != nil {
		return "", "", false
	}
	return obj.Image, obj.Text, true
}

// bareTextFormat pairs a line without any image reference with the first image
// of the image directory in lexicographic order. The pairing carries no identity
// information, so records it produces are flagged unreliable.
type bareTextFormat struct {
	imageDir string
	listed   bool
	first    string
}

func (*bareTextFormat) Name() constants.LabelFormat { return constants.FormatBareText }

func (f *bareTextFormat) Parse(line string) (string, string, bool) {
	if constants.ContainsImageExt(line) {
		return "", "", false
	}
	first := f.firstImage()
	if first == "" {
		return "", "", false
	}
	return first, line, true
}

func (f *bareTextFormat) firstImage() string {
	if f.listed {
		return f.first
	}
	f.listed = true
	f.first = FirstImage(f.imageDir)
	return f.first
}

// FirstImage returns the lexicographically smallest image file name directly
// under dir, or "" when there is none.
func FirstImage(dir string) string {
	if dir == "" {
		return ""
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if constants.HasImageExt(strings.ToLower(e.Name())) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return names[0]
}

// buildFormats returns the enabled strategies in precedence order.
func buildFormats(opts Options) []Format {
	enabled := map[constants.LabelFormat]bool{}
	if len(opts.Formats) == 0 {
		for _, f := range constants.AllFormats() {
			enabled[f] = true
		}
	} else {
		for _, f := range opts.Formats {
			enabled[f] = true
		}
	}
	if !opts.AllowBareText {
		enabled[constants.FormatBareText] = false
	}

	var out []Format
	for _, name := range constants.AllFormats() {
		if !enabled[name] {
			continue
		}
		switch name {
		case constants.FormatTab:
			out = append(out, tabFormat{})
		case constants.FormatSpace:
			out = append(out, spaceFormat{})
		case constants.FormatJSON:
			out = append(out, jsonFormat{})
		case constants.FormatBareText:
			out = append(out, &bareTextFormat{imageDir: opts.ImageDir})
		}
	}
	return out
}
