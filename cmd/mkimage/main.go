// Command mkimage assembles a bootable disk image out of a boot block, a
// kernel ELF image, and a skeleton directory tree, the Sv39 counterpart to
// the teacher's mkfs utility. The pack's ufs/fs packages implement only the
// in-kernel block-cache and superblock-field codec (no host-side inode
// allocator survived the port), so rather than depend on a filesystem this
// tool cannot actually drive, mkimage lays the skeleton tree out as a flat,
// block-aligned manifest using the same little-endian field convention
// fs.BSIZE-sized blocks use on disk.
package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	kfs "sv39kernel/src/fs"
)

// imageMagic tags block 0 so a later boot-time reader can sanity-check the
// image before trusting the header fields that follow it.
const imageMagic = 0x53563339 // "SV39"

// header mirrors fs.Superblock_t's field-per-8-bytes layout convention
// (see fs/util.go's fieldr/fieldw) without reusing its type, since
// Superblock_t is sized and owned by the in-kernel block cache, not a
// host-side image builder.
type header struct {
	magic         uint64
	bootBlocks    uint64
	kernelBlocks  uint64
	manifestBlocks uint64
	dataBlocks    uint64
	fileCount     uint64
}

func (h header) encode() []byte {
	buf := make([]byte, kfs.BSIZE)
	fields := []uint64{h.magic, h.bootBlocks, h.kernelBlocks, h.manifestBlocks, h.dataBlocks, h.fileCount}
	for i, v := range fields {
		binary.LittleEndian.PutUint64(buf[i*8:i*8+8], v)
	}
	return buf
}

// manifestEntry records one skeleton-tree file's placement in the data
// region: its image-relative path, starting block, and exact byte length
// (trailing padding in the final block is not part of the file).
type manifestEntry struct {
	path  string
	block uint64
	size  uint64
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mkimage:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var bootPath, kernelPath, outPath, skelDir string

	cmd := &cobra.Command{
		Use:   "mkimage",
		Short: "Assemble a boot image, kernel image, and skeleton tree into a disk image",
		RunE: func(cmd *cobra.Command, args []string) error {
			return build(bootPath, kernelPath, outPath, skelDir)
		},
	}
	cmd.SilenceUsage = true
	cmd.Flags().StringVar(&bootPath, "boot", "", "path to the boot block image")
	cmd.Flags().StringVar(&kernelPath, "kernel", "", "path to the kernel ELF image")
	cmd.Flags().StringVar(&outPath, "out", "", "path to write the assembled disk image")
	cmd.Flags().StringVar(&skelDir, "skel", "", "skeleton directory tree to pack into the image")
	for _, name := range []string{"boot", "kernel", "out", "skel"} {
		cmd.MarkFlagRequired(name)
	}
	return cmd
}

func build(bootPath, kernelPath, outPath, skelDir string) error {
	boot, err := os.ReadFile(bootPath)
	if err != nil {
		return fmt.Errorf("read boot image: %w", err)
	}
	kernel, err := os.ReadFile(kernelPath)
	if err != nil {
		return fmt.Errorf("read kernel image: %w", err)
	}

	entries, data, err := packSkeleton(skelDir)
	if err != nil {
		return fmt.Errorf("pack skeleton %q: %w", skelDir, err)
	}
	manifest := encodeManifest(entries)

	bootBlocks := blocksFor(len(boot))
	kernelBlocks := blocksFor(len(kernel))
	manifestBlocks := blocksFor(len(manifest))
	dataBlocks := blocksFor(len(data))

	h := header{
		magic:          imageMagic,
		bootBlocks:     uint64(bootBlocks),
		kernelBlocks:   uint64(kernelBlocks),
		manifestBlocks: uint64(manifestBlocks),
		dataBlocks:     uint64(dataBlocks),
		fileCount:      uint64(len(entries)),
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %q: %w", outPath, err)
	}
	defer out.Close()

	w := func(b []byte, blocks int) error {
		padded := make([]byte, blocks*kfs.BSIZE)
		copy(padded, b)
		_, err := out.Write(padded)
		return err
	}
	if err := w(h.encode(), 1); err != nil {
		return err
	}
	if err := w(boot, bootBlocks); err != nil {
		return err
	}
	if err := w(kernel, kernelBlocks); err != nil {
		return err
	}
	if err := w(manifest, manifestBlocks); err != nil {
		return err
	}
	if err := w(data, dataBlocks); err != nil {
		return err
	}

	totalBlocks := 1 + bootBlocks + kernelBlocks + manifestBlocks + dataBlocks
	fmt.Printf("mkimage: wrote %s (%d files, %d blocks, %d bytes)\n",
		outPath, len(entries), totalBlocks, totalBlocks*kfs.BSIZE)
	return nil
}

func blocksFor(n int) int {
	return (n + kfs.BSIZE - 1) / kfs.BSIZE
}

// packSkeleton walks dir and returns the manifest entries plus the
// concatenated, block-aligned file data they point into -- the flat
// replacement for the teacher's recursive addfiles/copydata, which drove a
// real inode tree this pack's fs package no longer provides a host-side path
// into.
func packSkeleton(dir string) ([]manifestEntry, []byte, error) {
	var entries []manifestEntry
	var data []byte

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))
		if rel == "" {
			return nil
		}

		contents, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		block := uint64(len(data) / kfs.BSIZE)
		entries = append(entries, manifestEntry{path: rel, block: block, size: uint64(len(contents))})

		data = append(data, contents...)
		if pad := len(data) % kfs.BSIZE; pad != 0 {
			data = append(data, make([]byte, kfs.BSIZE-pad)...)
		}
		return nil
	})
	if err != nil && err != io.EOF {
		return nil, nil, err
	}
	return entries, data, nil
}

// encodeManifest serializes entries as a sequence of
// (uint16 path-length, path bytes, uint64 block, uint64 size) records: the
// same little-endian 8-byte integers fs/util.go's fieldr/fieldw use for
// fixed-width fields, plus a length-prefixed variable-width name.
func encodeManifest(entries []manifestEntry) []byte {
	var buf []byte
	for _, e := range entries {
		name := []byte(e.path)
		var lenBuf [2]byte
		binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(name)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, name...)

		var numBuf [16]byte
		binary.LittleEndian.PutUint64(numBuf[0:8], e.block)
		binary.LittleEndian.PutUint64(numBuf[8:16], e.size)
		buf = append(buf, numBuf[:]...)
	}
	return buf
}
