/*
 * JuiceFS, Copyright 2021 Juicedata, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
	"github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"

	"github.com/ozanturksever/agentfs/pkg/meta"
	"github.com/ozanturksever/agentfs/pkg/store"
)

func fsckCommand() *cli.Command {
	return &cli.Command{
		Name:      "fsck",
		Usage:     "check consistency of an agentfs store",
		ArgsUsage: "DB-URI",
		Action:    runFsck,
	}
}

type inodeSummary struct {
	Ino  meta.Ino `xorm:"'ino'"`
	Mode int64    `xorm:"'mode'"`
	Size int64    `xorm:"'size'"`
}

type chunkSum struct {
	Ino meta.Ino `xorm:"'ino'"`
	N   int64    `xorm:"'n'"`
	Sum int64    `xorm:"'sum'"`
	Max int64    `xorm:"'mx'"`
}

type countRow struct {
	Ino meta.Ino `xorm:"'ino'"`
}

func runFsck(ctx *cli.Context) error {
	if ctx.Args().Len() < 1 {
		return fmt.Errorf("DB-URI is needed")
	}
	db, err := openStore(ctx, 0)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	p := mpb.New(mpb.WithWidth(64))
	var problems []string

	bar := p.AddBar(6,
		mpb.PrependDecorators(decor.Name("checking")),
		mpb.AppendDecorators(decor.Percentage()),
	)

	step := func(name string, fn func() ([]string, error)) {
		found, err := fn()
		if err != nil {
			logger.Errorf("%s: %s", name, err)
		}
		problems = append(problems, found...)
		bar.Increment()
	}

	step("orphan inodes", func() ([]string, error) { return checkOrphanInodes(db) })
	step("dangling dentries", func() ([]string, error) { return checkDanglingDentries(db) })
	step("dangling parents", func() ([]string, error) { return checkDanglingParents(db) })
	step("orphan chunks", func() ([]string, error) { return checkOrphanChunks(db) })
	step("orphan symlinks", func() ([]string, error) { return checkOrphanSymlinks(db) })
	step("chunk/size consistency", func() ([]string, error) { return checkChunkConsistency(db) })

	p.Wait()

	if len(problems) == 0 {
		logger.Infof("fsck: store is consistent")
		return nil
	}
	msg := fmt.Sprintf("fsck found %d problem(s):\n%s", len(problems), strings.Join(problems, "\n"))
	return fmt.Errorf("%s", msg)
}

// checkOrphanInodes finds non-root inodes with no dentry pointing to them,
// which should be impossible: purgeInodeIfOrphan deletes an inode the moment
// its last dentry goes away.
func checkOrphanInodes(db *store.Store) ([]string, error) {
	var rows []inodeSummary
	err := db.Find(&rows, `
		SELECT ino, mode, size FROM fs_inode
		WHERE ino != ? AND ino NOT IN (SELECT ino FROM fs_dentry)`, store.RootIno)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range rows {
		out = append(out, fmt.Sprintf("orphan inode %d (mode %o, size %d): no dentry references it", r.Ino, r.Mode, r.Size))
	}
	return out, nil
}

// checkDanglingDentries finds dentries whose target inode row is missing.
func checkDanglingDentries(db *store.Store) ([]string, error) {
	var rows []struct {
		ID   int64    `xorm:"'id'"`
		Name string   `xorm:"'name'"`
		Ino  meta.Ino `xorm:"'ino'"`
	}
	err := db.Find(&rows, `
		SELECT id, name, ino FROM fs_dentry
		WHERE ino NOT IN (SELECT ino FROM fs_inode)`)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range rows {
		out = append(out, fmt.Sprintf("dentry %d (%q) points at missing inode %d", r.ID, r.Name, r.Ino))
	}
	return out, nil
}

// checkDanglingParents finds dentries whose parent_ino does not name any
// existing inode. A parent that exists but is not a directory is not
// reported.
func checkDanglingParents(db *store.Store) ([]string, error) {
	var rows []struct {
		ID        int64    `xorm:"'id'"`
		Name      string   `xorm:"'name'"`
		ParentIno meta.Ino `xorm:"'parent_ino'"`
	}
	err := db.Find(&rows, `
		SELECT id, name, parent_ino FROM fs_dentry
		WHERE parent_ino NOT IN (SELECT ino FROM fs_inode)`)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range rows {
		out = append(out, fmt.Sprintf("dentry %d (%q) has parent_ino %d which does not exist", r.ID, r.Name, r.ParentIno))
	}
	return out, nil
}

// checkOrphanChunks finds fs_data rows for inodes that no longer exist,
// which purgeInodeIfOrphan's DELETE FROM fs_data should always prevent.
func checkOrphanChunks(db *store.Store) ([]string, error) {
	var rows []countRow
	err := db.Find(&rows, `
		SELECT DISTINCT ino FROM fs_data
		WHERE ino NOT IN (SELECT ino FROM fs_inode)`)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range rows {
		out = append(out, fmt.Sprintf("chunk data for missing inode %d", r.Ino))
	}
	return out, nil
}

// checkOrphanSymlinks finds fs_symlink rows for inodes that no longer exist.
func checkOrphanSymlinks(db *store.Store) ([]string, error) {
	var rows []countRow
	err := db.Find(&rows, `
		SELECT ino FROM fs_symlink
		WHERE ino NOT IN (SELECT ino FROM fs_inode)`)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range rows {
		out = append(out, fmt.Sprintf("symlink row for missing inode %d", r.Ino))
	}
	return out, nil
}

// checkChunkConsistency verifies, for every regular file, that its chunk
// indices form a contiguous 0..N-1 run and that the inode's recorded size
// matches the sum of its chunk lengths.
func checkChunkConsistency(db *store.Store) ([]string, error) {
	var files []inodeSummary
	if err := db.Find(&files, `SELECT ino, mode, size FROM fs_inode WHERE mode & ? = ?`, 0o170000, 0o100000); err != nil {
		return nil, err
	}

	var out []string
	for _, f := range files {
		var chunks []struct {
			ChunkIndex int64 `xorm:"'chunk_index'"`
			Len        int64 `xorm:"'len'"`
		}
		if err := db.Find(&chunks, `SELECT chunk_index, length(data) AS len FROM fs_data WHERE ino = ? ORDER BY chunk_index ASC`, f.Ino); err != nil {
			return nil, err
		}
		var sum int64
		for i, c := range chunks {
			if c.ChunkIndex != int64(i) {
				out = append(out, fmt.Sprintf("inode %d: chunk index gap, expected %d got %d", f.Ino, i, c.ChunkIndex))
			}
			sum += c.Len
		}
		if len(chunks) == 0 && f.Size != 0 {
			out = append(out, fmt.Sprintf("inode %d: size %d but no chunk rows", f.Ino, f.Size))
			continue
		}
		if sum != f.Size {
			out = append(out, fmt.Sprintf("inode %d: recorded size %d does not match chunk total %d", f.Ino, f.Size, sum))
		}
	}
	return out, nil
}
