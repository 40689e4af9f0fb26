package timetable

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

var (
	schoolIDRegex   = regexp.MustCompile(`(?:var\s+)?id_sola\s*=\s*'(\d+)'`)
	classOptionsSel = "#id_parameter > option"

	errSchoolIDMissing = errors.New("school id not found")
)

// ParseSchoolPage extracts the school id and the class list from the public landing page of a school.
func ParseSchoolPage(html, schoolKey string) (SchoolMeta, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return SchoolMeta{}, core.NewParseError("school page", err)
	}

	schoolID, err := findSchoolID(doc, html)
	if err != nil {
		return SchoolMeta{}, core.NewParseError("school page", err)
	}

	classes := make([]ClassInfo, 0)
	doc.Find(classOptionsSel).Each(func(_ int, opt *goquery.Selection) {
		val, _ := opt.Attr("value")
		id, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return // placeholder or malformed option
		}
		classes = append(classes, ClassInfo{ID: id, Label: core.CleanString(opt.Text())})
	})

	return SchoolMeta{SchoolKey: schoolKey, SchoolID: schoolID, Classes: classes}, nil
}

func findSchoolID(doc *goquery.Document, html string) (int, error) {
	var match []string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		match = schoolIDRegex.FindStringSubmatch(s.Text())
		return match == nil
	})
	if match == nil {
		match = schoolIDRegex.FindStringSubmatch(html)
	}
	if match == nil {
		return 0, errSchoolIDMissing
	}
	id, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, errors.Wrap(err, "school id")
	}
	return id, nil
}
