package sml

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// NodeType enumerates the value kinds of the SML data layer.
type NodeType uint8

const (
	TypeOctetString NodeType = iota
	TypeBoolean
	TypeInteger
	TypeUnsigned
	TypeList
	TypeEndOfMessage
)

func (t NodeType) String() string {
	switch t {
	case TypeOctetString:
		return "OctetString"
	case TypeBoolean:
		return "Boolean"
	case TypeInteger:
		return "Integer"
	case TypeUnsigned:
		return "Unsigned"
	case TypeList:
		return "List"
	case TypeEndOfMessage:
		return "EndOfMessage"
	default:
		return fmt.Sprintf("NodeType(%d)", uint8(t))
	}
}

// Node is one element of a decoded SML message. Exactly the field
// matching Type is meaningful; consumers switch exhaustively on Type.
type Node struct {
	Type     NodeType
	Bytes    []byte // TypeOctetString
	Bool     bool   // TypeBoolean
	Int      int64  // TypeInteger
	Uint     uint64 // TypeUnsigned
	Children []Node // TypeList
}

// AsInt64 returns the numeric value of an Integer or Unsigned node.
func (n *Node) AsInt64() (int64, bool) {
	switch n.Type {
	case TypeInteger:
		return n.Int, true
	case TypeUnsigned:
		return int64(n.Uint), true
	default:
		return 0, false
	}
}

// Dump renders the node tree one element per line, nested lists
// indented. Used by the sml_dump tool and for verbose logging.
func (n *Node) Dump() string {
	var sb strings.Builder
	n.dump(&sb, 0)
	return sb.String()
}

func (n *Node) dump(sb *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n.Type {
	case TypeOctetString:
		fmt.Fprintf(sb, "%sOctetString %s\n", indent, hex.EncodeToString(n.Bytes))
	case TypeBoolean:
		fmt.Fprintf(sb, "%sBoolean %t\n", indent, n.Bool)
	case TypeInteger:
		fmt.Fprintf(sb, "%sInteger %d\n", indent, n.Int)
	case TypeUnsigned:
		fmt.Fprintf(sb, "%sUnsigned %d\n", indent, n.Uint)
	case TypeList:
		fmt.Fprintf(sb, "%sList(%d)\n", indent, len(n.Children))
		for i := range n.Children {
			n.Children[i].dump(sb, depth+1)
		}
	case TypeEndOfMessage:
		fmt.Fprintf(sb, "%sEndOfMessage\n", indent)
	}
}
