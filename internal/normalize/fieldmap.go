// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"strings"

	"github.com/pdiddy/policy-feed/internal/source"
	"github.com/pdiddy/policy-feed/pkg/types"
)

// FieldMap lists, per canonical attribute, the raw field names that may
// carry it. Names are tried in order and the first non-empty value wins.
// Keywords is the exception: every listed field contributes.
type FieldMap struct {
	ExternalID  []string
	Title       []string
	Content     []string
	Summary     []string
	SourceURL   []string
	PublishedAt []string
	Keywords    []string
	ImageURL    []string
}

// fieldMaps holds the mapping table of every known source. Upstream schema
// drift is absorbed here and nowhere else.
var fieldMaps = map[types.SourceType]FieldMap{
	types.SourceNews: {
		ExternalID:  []string{"NewsItemId", "newsItemId"},
		Title:       []string{"Title", "title"},
		Content:     []string{"DataContents", "dataContents", "Contents"},
		Summary:     []string{"SubTitle1", "subTitle1", "SubTitle2"},
		SourceURL:   []string{"OriginalUrl", "originalUrl"},
		PublishedAt: []string{"ApproveDate", "approveDate", "ModifyDate"},
		Keywords:    []string{"Keywords", "keyword"},
		ImageURL:    []string{"ThumbnailUrl", "thumbnailUrl", "OriginalimgUrl"},
	},
	types.SourceWelfare: {
		ExternalID:  []string{"servId"},
		Title:       []string{"servNm"},
		Content:     []string{"alwServCn", "servDgst"},
		Summary:     []string{"servDgst"},
		SourceURL:   []string{"servDtlLink"},
		PublishedAt: []string{"svcfrstRegTs", "lastModYmd"},
		Keywords:    []string{"intrsThemaArray", "lifeArray", "trgterIndvdlArray"},
	},
	types.SourceYouth: {
		ExternalID:  []string{"bizId", "plcyNo"},
		Title:       []string{"polyBizSjnm", "plcyNm"},
		Content:     []string{"sporCn", "polyItcnCn", "plcyExplnCn"},
		Summary:     []string{"polyItcnCn", "plcyExplnCn"},
		SourceURL:   []string{"rqutUrla", "aplyUrlAddr", "refUrlAddr1"},
		PublishedAt: []string{"frstRegDt", "rqutPrdCn", "bizPrdBgngYmd"},
		Keywords:    []string{"plcyKywdNm", "polyRlmCd"},
	},
}

// FieldMapFor returns the mapping table for t. Unknown types get an empty
// table, which leaves the record without a title.
func FieldMapFor(t types.SourceType) FieldMap {
	return fieldMaps[t]
}

// first returns the first non-empty value among keys.
func first(raw source.RawItem, keys []string) string {
	for _, k := range keys {
		if v := raw.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// ItemID returns the source-native id of raw, or "" when it has none.
func ItemID(raw source.RawItem, t types.SourceType) string {
	return strings.TrimSpace(first(raw, FieldMapFor(t).ExternalID))
}
