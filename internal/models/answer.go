package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AnswerValue holds either a single string answer or a list of selections.
type AnswerValue struct {
	Text   string
	List   []string
	IsList bool
}

func StringAnswer(s string) AnswerValue {
	return AnswerValue{Text: s}
}

func ListAnswer(items ...string) AnswerValue {
	return AnswerValue{List: append([]string(nil), items...), IsList: true}
}

// IsEmpty reports whether the value carries no usable answer.
func (v AnswerValue) IsEmpty() bool {
	if v.IsList {
		for _, item := range v.List {
			if strings.TrimSpace(item) != "" {
				return false
			}
		}
		return true
	}
	return strings.TrimSpace(v.Text) == ""
}

func (v AnswerValue) String() string {
	if v.IsList {
		return strings.Join(v.List, ", ")
	}
	return v.Text
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	if v.IsList {
		list := v.List
		if list == nil {
			list = []string{}
		}
		return json.Marshal(list)
	}
	return json.Marshal(v.Text)
}

// UnmarshalJSON accepts strings, numbers, booleans and arrays of those.
// Older records stored scale answers as bare numbers.
func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = AnswerValue{}
		return nil
	}

	if data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		list := make([]string, 0, len(raw))
		for _, item := range raw {
			s, err := scalarString(item)
			if err != nil {
				return err
			}
			list = append(list, s)
		}
		*v = AnswerValue{List: list, IsList: true}
		return nil
	}

	s, err := scalarString(data)
	if err != nil {
		return err
	}
	*v = AnswerValue{Text: s}
	return nil
}

func scalarString(data []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return "", err
	}
	switch t := raw.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		return "", fmt.Errorf("unsupported answer value: %s", string(data))
	}
}

// AnswerMap maps an answer key (see AnswerKey.String) to its value.
type AnswerMap map[string]AnswerValue

func (m AnswerMap) Clone() AnswerMap {
	out := make(AnswerMap, len(m))
	for k, v := range m {
		if v.IsList {
			v.List = append([]string(nil), v.List...)
		}
		out[k] = v
	}
	return out
}

// NonEmpty counts the keys whose value is non-empty.
func (m AnswerMap) NonEmpty() int {
	n := 0
	for _, v := range m {
		if !v.IsEmpty() {
			n++
		}
	}
	return n
}

// AnswerKey identifies one answer slot: a whole question, or one prompt of a scale-grid.
type AnswerKey struct {
	QuestionID  string `json:"question_id"`
	PromptIndex int    `json:"prompt_index"`
	HasPrompt   bool   `json:"has_prompt"`
}

func QuestionKey(id string) AnswerKey {
	return AnswerKey{QuestionID: id}
}

func PromptKey(id string, index int) AnswerKey {
	return AnswerKey{QuestionID: id, PromptIndex: index, HasPrompt: true}
}

// String renders the storage form of the key, "{questionId}_{promptIndex}" for grid prompts.
func (k AnswerKey) String() string {
	if !k.HasPrompt {
		return k.QuestionID
	}
	return k.QuestionID + "_" + strconv.Itoa(k.PromptIndex)
}
