// Package engine walks the old and new trees and classifies every file.
package engine

import (
	"context"

	"github.com/sdejongh/dircompare/pkg/models"
	"github.com/sdejongh/dircompare/pkg/storage"
)

// fileVisitor is called once per file found under a root
type fileVisitor func(ctx context.Context, file storage.FileInfo) error

// maxLinkDepth bounds how many linked directories a single path may pass through
const maxLinkDepth = 40

// dirFrame is a directory waiting on the stack, chained to the directory it was found in
type dirFrame struct {
	path   string
	info   *storage.FileInfo
	parent *dirFrame
	links  int
}

// loops reports whether info is one of the directories already entered on the way to f
func (f *dirFrame) loops(info *storage.FileInfo) bool {
	for p := f; p != nil; p = p.parent {
		if p.info.SameFile(info) {
			return true
		}
	}
	return false
}

// walkFiles visits every file under root depth-first using an explicit stack.
// Symbolic links are followed: a link to a file is visited as the file it
// points to and a link to a directory is descended into, unless that
// directory is already one of its own ancestors. Broken links and special
// files are skipped.
func walkFiles(ctx context.Context, fs *storage.FS, root string, visit fileVisitor) error {
	rootInfo, _ := fs.Stat(ctx, root)
	stack := []*dirFrame{{path: root, info: rootInfo}}

	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := ctx.Err(); err != nil {
			return err
		}

		entries, err := fs.ReadDir(ctx, dir.path)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return models.NewIOError("list", dir.path, err)
		}

		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}

			switch {
			case entry.IsDir:
				info := entry
				stack = append(stack, &dirFrame{path: entry.Path, info: &info, parent: dir, links: dir.links})
			case entry.IsRegular():
				if err := visit(ctx, entry); err != nil {
					return err
				}
			case entry.IsSymlink():
				target, err := fs.Stat(ctx, entry.Path)
				if err != nil {
					continue
				}
				if target.IsDir {
					if dir.links >= maxLinkDepth || dir.loops(target) {
						continue
					}
					stack = append(stack, &dirFrame{path: entry.Path, info: target, parent: dir, links: dir.links + 1})
					continue
				}
				if !target.IsRegular() {
					continue
				}
				if err := visit(ctx, *target); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// CountFiles returns the number of files the walker will visit under root
func CountFiles(ctx context.Context, fs *storage.FS, root string) (int64, error) {
	var n int64
	err := walkFiles(ctx, fs, root, func(context.Context, storage.FileInfo) error {
		n++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
