package match

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

type Suspicion struct {
	Types      Operation
	OriginPack string
}

type Operation int8

const (
	// Unknown item represents package is not detected.
	Unknown Operation = 0
	// Confusion item represents package is suspect a typosquat of a popular package.
	Confusion Operation = 1
	// Malware item represents package is a known malicious package.
	Malware Operation = 2
)

func (o Operation) String() string {
	switch o {
	case Confusion:
		return "confusion"
	case Malware:
		return "malware"
	default:
		return "unknown"
	}
}

// compare returns the similarity ratio of two names, 1.0 for identical ones.
func compare(pack1, pack2 string) float64 {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(pack1, pack2, false)
	matches := 0
	for _, diff := range diffs {
		if diff.Type == diffmatchpatch.DiffEqual {
			matches += len(diff.Text)
		}
	}

	sums := len(pack1) + len(pack2)
	if sums > 0 {
		return 2.0 * float64(matches) / float64(sums)
	}

	return 1.0
}

// popular names shorter than this are one edit away from too many real packages
const minConfusionLen = 4

// segments splits a name on the separators package names are built with.
func segments(pack string) []string {
	return strings.FieldsFunc(pack, func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || r == '/' || r == '@'
	})
}

func confusionCheck(pack string, populars []string) string {
	parts := segments(pack)

	for _, p := range populars {
		p = strings.ToLower(p)
		if len(p) < minConfusionLen {
			continue
		}

		// plugins and flavors such as ts-jest or lodash-es carry the name verbatim
		extends := false
		for _, part := range parts {
			if part == p {
				extends = true
				break
			}
		}
		if extends {
			continue
		}

		ratio := compare(pack, p)
		if ratio < 0.99 && ratio > 0.70 {
			return p
		}
	}
	return ""
}

func malwareCheck(pack string, malicious map[string]string) string {
	if ori, ok := malicious[pack]; ok {
		return ori
	}
	return ""
}

// match looks the package up in the malicious list first, then against
// the popular names it could be impersonating. Names in legitimate are
// known packages that only look close to a popular one.
func match(pack string, populars []string, malicious map[string]string, legitimate map[string]bool) Suspicion {
	t := Suspicion{
		Types: Unknown,
	}

	pack = strings.ToLower(strings.TrimSpace(pack))
	if p := malwareCheck(pack, malicious); p != "" {
		t.Types = Malware
		t.OriginPack = p
		return t
	}

	if legitimate[pack] {
		return t
	}

	// filter the origin packages
	for _, p := range populars {
		if pack == strings.ToLower(p) {
			return t
		}
	}

	if p := confusionCheck(pack, populars); p != "" {
		t.Types = Confusion
		t.OriginPack = p
	}

	return t
}
