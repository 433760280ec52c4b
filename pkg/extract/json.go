package extract

import (
	"encoding/json"
	"strings"
)

// envelope is the JSON shape a generator may wrap its hunks in.
type envelope struct {
	Hunks []string `json:"hunks"`
	Patch string   `json:"patch"`
	Diff  string   `json:"diff"`
}

func (e envelope) hunks() ([]string, bool) {
	var hunks []string
	for _, h := range e.Hunks {
		if found, ok := headedHunks(h); ok {
			hunks = append(hunks, found...)
		}
	}
	for _, doc := range []string{e.Patch, e.Diff} {
		if found, ok := headedHunks(doc); ok {
			hunks = append(hunks, found...)
		}
	}
	return hunks, len(hunks) > 0
}

// JSONEnvelope decodes {"hunks": [...]} or {"patch": "..."} from the whole
// text, then from a fenced json block, then from the first balanced object.
func JSONEnvelope(text string) ([]string, bool) {
	env, ok := First[envelope](text, strictJSON, fencedJSON, bracedJSON)
	if !ok {
		return nil, false
	}
	return env.hunks()
}

func decode(text string) (envelope, bool) {
	var env envelope
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &env); err != nil {
		return envelope{}, false
	}
	if _, ok := env.hunks(); !ok {
		return envelope{}, false
	}
	return env, true
}

func strictJSON(text string) (envelope, bool) {
	return decode(text)
}

func fencedJSON(text string) (envelope, bool) {
	for _, block := range CodeBlocks(text) {
		if block.Lang != "json" {
			continue
		}
		if env, ok := decode(block.Content); ok {
			return env, true
		}
	}
	return envelope{}, false
}

func bracedJSON(text string) (envelope, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		end := matchBrace(text, start)
		if end < 0 {
			return envelope{}, false
		}
		if env, ok := decode(text[start : end+1]); ok {
			return env, true
		}

		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += 1 + next
	}
	return envelope{}, false
}

// matchBrace returns the index of the brace closing the one at start, or -1.
// Braces inside JSON strings are ignored.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
