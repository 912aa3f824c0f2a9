// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"errors"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// ErrEmptyTable is returned when a keyword file defines no categories.
var ErrEmptyTable = errors.New("keyword table has no categories")

// DefaultTable returns the built-in Korean keyword table.
func DefaultTable() Table {
	return Table{
		Default: DefaultCategory,
		Categories: []Category{
			{Name: "employment", Keywords: []string{"일자리", "취업", "고용", "채용", "구직", "실업", "근로", "직업훈련"}},
			{Name: "housing", Keywords: []string{"주거", "주택", "임대", "월세", "전세", "보증금", "청약"}},
			{Name: "education", Keywords: []string{"교육", "학교", "장학", "학자금", "대학", "학습", "평생교육"}},
			{Name: "health", Keywords: []string{"건강", "의료", "병원", "질병", "진료", "건강검진", "정신건강"}},
			{Name: "childcare", Keywords: []string{"보육", "육아", "출산", "아동", "어린이집", "양육", "임신"}},
			{Name: "finance", Keywords: []string{"금융", "대출", "자산", "저축", "신용", "이자", "세금", "소득공제"}},
			{Name: "culture", Keywords: []string{"문화", "예술", "관광", "체육", "여가", "공연", "축제"}},
			{Name: "startup", Keywords: []string{"창업", "스타트업", "소상공인", "벤처", "사업화"}},
			{Name: "welfare", Keywords: []string{"복지", "생계", "기초생활", "장애인", "노인", "긴급지원", "돌봄", "수당"}},
		},
	}
}

// LoadTable reads a keyword table from a YAML file.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("reading keyword table %s: %w", path, err)
	}
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("parsing keyword table %s: %w", path, err)
	}
	if len(t.Categories) == 0 {
		return Table{}, fmt.Errorf("%s: %w", path, ErrEmptyTable)
	}
	if t.Default == "" {
		t.Default = DefaultCategory
	}
	return t, nil
}

// FromFile returns a Classifier over the table at path, or over the
// built-in table when path is empty.
func FromFile(path string) (*Classifier, error) {
	if path == "" {
		return NewDefault(), nil
	}
	t, err := LoadTable(path)
	if err != nil {
		return nil, err
	}
	return New(t), nil
}
