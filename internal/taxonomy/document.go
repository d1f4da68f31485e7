package taxonomy

import (
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Document is the ordered, serializable view of a Taxonomy used by the API.
type Document struct {
	Version          string             `json:"version"`
	Keywords         []Keyword          `json:"keywords"`
	Threshold        float64            `json:"threshold"`
	SubtagThresholds map[string]float64 `json:"subtag_thresholds,omitempty"`
}

// Document returns a serializable copy of t.
func (t *Taxonomy) Document() Document {
	return Document{
		Version:          t.version,
		Keywords:         t.Keywords(),
		Threshold:        t.defaultThreshold,
		SubtagThresholds: t.SubtagThresholds(),
	}
}

// MarshalYAML renders t in the on-disk document layout, keeping keyword order.
func (t *Taxonomy) MarshalYAML() (interface{}, error) {
	keywords := &yaml.Node{Kind: yaml.MappingNode}
	for _, kw := range t.keywords {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, st := range kw.Subtags {
			seq.Content = append(seq.Content, scalar(st))
		}
		keywords.Content = append(keywords.Content, scalar(kw.Name), seq)
	}
	root := &yaml.Node{Kind: yaml.MappingNode}
	root.Content = append(root.Content,
		scalar("keywords"), keywords,
		scalar("threshold"), floatScalar(t.defaultThreshold),
	)
	if len(t.subtagThresholds) > 0 {
		names := make([]string, 0, len(t.subtagThresholds))
		for st := range t.subtagThresholds {
			names = append(names, st)
		}
		sort.Strings(names)
		overrides := &yaml.Node{Kind: yaml.MappingNode}
		for _, st := range names {
			overrides.Content = append(overrides.Content, scalar(st), floatScalar(t.subtagThresholds[st]))
		}
		root.Content = append(root.Content, scalar("subtag_thresholds"), overrides)
	}
	return root, nil
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func floatScalar(f float64) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(f, 'g', -1, 64)}
}
