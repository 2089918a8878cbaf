package paramtree

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type weapon uint8

type nested struct {
	X int32 `rpc:"in,0"`
	Y int32 `rpc:"in,1"`
}

type sample struct {
	Skip   int32    `rpc:"in,-1"`
	Name   string   `rpc:"in,0"`
	Kind   weapon   `rpc:"in,1"`
	Pos    *nested  `rpc:"in,2"`
	Tags   []string `rpc:"in,3"`
	Result bool     `rpc:"out,0"`

	untagged int
}

func TestBuildOrdersByIndexAscending(t *testing.T) {
	nodes, err := Build(reflect.TypeOf(sample{}), DirIn)
	require.NoError(t, err)
	require.Len(t, nodes, 5)

	var names []string
	for _, n := range nodes {
		names = append(names, n.Name)
	}
	require.Equal(t, []string{"Skip", "Name", "Kind", "Pos", "Tags"}, names)
}

func TestBuildSkipsUntaggedAndWrongDirectionFields(t *testing.T) {
	nodes, err := Build(reflect.TypeOf(sample{}), DirOut)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	require.Equal(t, "Result", nodes[0].Name)
}

func TestClassifyDetectsEnum(t *testing.T) {
	nodes, err := Build(reflect.TypeOf(sample{}), DirIn)
	require.NoError(t, err)

	var kindNode *Node
	for _, n := range nodes {
		if n.Name == "Kind" {
			kindNode = n
		}
	}
	require.NotNil(t, kindNode)
	require.Equal(t, KindEnum, kindNode.Kind)
	require.Equal(t, KindU8, kindNode.UnderlyingKind())
}

func TestClassifyRecursesIntoObjectPointer(t *testing.T) {
	nodes, err := Build(reflect.TypeOf(sample{}), DirIn)
	require.NoError(t, err)

	var posNode *Node
	for _, n := range nodes {
		if n.Name == "Pos" {
			posNode = n
		}
	}
	require.NotNil(t, posNode)
	require.Equal(t, KindObject, posNode.Kind)
	require.Len(t, posNode.Children, 2)
	require.Equal(t, "X", posNode.Children[0].Name)
	require.Equal(t, "Y", posNode.Children[1].Name)
}

func TestClassifyListOfScalars(t *testing.T) {
	nodes, err := Build(reflect.TypeOf(sample{}), DirIn)
	require.NoError(t, err)

	var tagsNode *Node
	for _, n := range nodes {
		if n.Name == "Tags" {
			tagsNode = n
		}
	}
	require.NotNil(t, tagsNode)
	require.Equal(t, KindList, tagsNode.Kind)
	require.Equal(t, KindString, tagsNode.ElemKind)
	require.Nil(t, tagsNode.Children)
}

func TestClassifyListOfTimestamps(t *testing.T) {
	type withTimestamps struct {
		At []time.Time `rpc:"in,0"`
	}
	nodes, err := Build(reflect.TypeOf(withTimestamps{}), DirIn)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	require.Equal(t, KindList, nodes[0].Kind)
	require.Equal(t, KindTimestamp, nodes[0].ElemKind)
	require.Nil(t, nodes[0].Children)
}

func TestClassifyListOfEnumsCarriesUnderlyingKind(t *testing.T) {
	type withWeapons struct {
		Weapons []weapon `rpc:"in,0"`
	}
	nodes, err := Build(reflect.TypeOf(withWeapons{}), DirIn)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	require.Equal(t, KindList, nodes[0].Kind)
	require.Equal(t, KindEnum, nodes[0].ElemKind)
	require.Equal(t, KindU8, nodes[0].ElemUnderlying)
}

func TestBuildRejectsNonStruct(t *testing.T) {
	_, err := Build(reflect.TypeOf(42), DirIn)
	require.Error(t, err)
}

func TestBuildRejectsMalformedTag(t *testing.T) {
	type bad struct {
		F int32 `rpc:"sideways"`
	}
	_, err := Build(reflect.TypeOf(bad{}), DirIn)
	require.Error(t, err)
}

func TestBuildRejectsUnknownDirection(t *testing.T) {
	type bad struct {
		F int32 `rpc:"sideways,0"`
	}
	_, err := Build(reflect.TypeOf(bad{}), DirIn)
	require.Error(t, err)
}
