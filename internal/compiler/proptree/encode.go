package proptree

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"strconv"

	"gopkg.in/yaml.v3"
)

// MarshalJSON renders the node as
//
//	{"name": "...", "props": {...}, "children": [...]}
//
// with properties in insertion order. Empty props and children are omitted.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) writeJSON(buf *bytes.Buffer) error {
	name, err := json.Marshal(n.name)
	if err != nil {
		return err
	}
	buf.WriteString(`{"name":`)
	buf.Write(name)

	if len(n.props) > 0 {
		buf.WriteString(`,"props":{`)
		for i, p := range n.props {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(p.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			switch p.Kind {
			case IntValue:
				buf.WriteString(strconv.Itoa(p.Int))
			case BoolValue:
				buf.WriteString(strconv.FormatBool(p.Bool))
			default:
				v, err := json.Marshal(p.Str)
				if err != nil {
					return err
				}
				buf.Write(v)
			}
		}
		buf.WriteByte('}')
	}

	if len(n.children) > 0 {
		buf.WriteString(`,"children":[`)
		for i, c := range n.children {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := c.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	}

	buf.WriteByte('}')
	return nil
}

// MarshalYAML renders the node with the same shape as MarshalJSON.
func (n *Node) MarshalYAML() (interface{}, error) {
	return n.yamlNode(), nil
}

func (n *Node) yamlNode() *yaml.Node {
	out := &yaml.Node{Kind: yaml.MappingNode}
	out.Content = append(out.Content, scalar("name"), scalar(n.name))

	if len(n.props) > 0 {
		props := &yaml.Node{Kind: yaml.MappingNode}
		for _, p := range n.props {
			v := &yaml.Node{Kind: yaml.ScalarNode, Value: p.Value(), Tag: "!!str"}
			switch p.Kind {
			case IntValue:
				v.Tag = "!!int"
			case BoolValue:
				v.Tag, v.Value = "!!bool", strconv.FormatBool(p.Bool)
			}
			props.Content = append(props.Content, scalar(p.Key), v)
		}
		out.Content = append(out.Content, scalar("props"), props)
	}

	if len(n.children) > 0 {
		children := &yaml.Node{Kind: yaml.SequenceNode}
		for _, c := range n.children {
			children.Content = append(children.Content, c.yamlNode())
		}
		out.Content = append(out.Content, scalar("children"), children)
	}
	return out
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

// MarshalXML renders "@" properties as attributes and the remaining
// properties as text elements ahead of the child elements.
func (n *Node) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	start := xml.StartElement{Name: xml.Name{Local: n.name}}
	for _, p := range n.props {
		if p.IsAttribute() {
			start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: p.Key[1:]}, Value: p.Value()})
		}
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, p := range n.props {
		if p.IsAttribute() {
			continue
		}
		if err := e.EncodeElement(p.Value(), xml.StartElement{Name: xml.Name{Local: p.Key}}); err != nil {
			return err
		}
	}
	for _, c := range n.children {
		if err := e.Encode(c); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}
