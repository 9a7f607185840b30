package main

import (
	"github.com/fatih/color"

	"github.com/signadot/observe/vector"
)

type colorFunc func(string, ...any) string

// colors maps each diff op to the color it prints in.
type colors map[vector.Op]colorFunc

func newColors() colors {
	add := color.RGB(8, 196, 16).SprintfFunc()
	del := color.RGB(196, 128, 128).SprintfFunc()
	return colors{
		vector.OpAppend:    add,
		vector.OpPushFront: add,
		vector.OpPushBack:  add,
		vector.OpInsert:    add,
		vector.OpClear:     color.RedString,
		vector.OpPopFront:  del,
		vector.OpPopBack:   del,
		vector.OpRemove:    del,
		vector.OpTruncate:  del,
		vector.OpSet:       color.RGB(198, 198, 46).SprintfFunc(),
		vector.OpReset:     color.RGB(168, 0, 196).SprintfFunc(),
	}
}

func (c colors) diff(d vector.Diff[any]) string {
	f, ok := c[d.Op]
	if !ok {
		return d.String()
	}
	return f("%s", d.String())
}
