package core

import (
	"fmt"

	"github.com/xlab/treeprint"

	"github.com/sarchlab/y86sim/insts"
	"github.com/sarchlab/y86sim/pipeline"
)

// FormatSnapshot renders the committed pipeline state as a tree.
func FormatSnapshot(snap pipeline.Snapshot) string {
	tree := treeprint.NewWithRoot(fmt.Sprintf("pc 0x%x  cc %s", snap.PC, snap.CC))

	f := snap.Fetch
	fetch := tree.AddBranch("fetch")
	fetch.AddMetaNode("stat", f.Stat)
	fetch.AddMetaNode("class", fmt.Sprintf("%s fn %d", f.Class, f.Fn))
	fetch.AddMetaNode("rA", reg(f.RA))
	fetch.AddMetaNode("rB", reg(f.RB))
	fetch.AddMetaNode("valC", hex(f.ValC))
	fetch.AddMetaNode("valP", hex(f.ValP))

	d := snap.Decode
	decode := tree.AddBranch("decode")
	decode.AddMetaNode("stat", d.Stat)
	decode.AddMetaNode("srcA", fmt.Sprintf("%s = %s", reg(d.SrcA), hex(d.ValA)))
	decode.AddMetaNode("srcB", fmt.Sprintf("%s = %s", reg(d.SrcB), hex(d.ValB)))
	decode.AddMetaNode("dstE", reg(d.DstE))
	decode.AddMetaNode("dstM", reg(d.DstM))

	e := snap.Execute
	execute := tree.AddBranch("execute")
	execute.AddMetaNode("stat", e.Stat)
	execute.AddMetaNode("valE", hex(e.ValE))
	execute.AddMetaNode("cnd", e.Cnd)

	m := snap.Memory
	memory := tree.AddBranch("memory")
	memory.AddMetaNode("stat", m.Stat)
	memory.AddMetaNode("valM", hex(m.ValM))

	w := snap.Writeback
	writeback := tree.AddBranch("writeback")
	writeback.AddMetaNode("stat", w.Stat)
	writeback.AddMetaNode("pc", hex(w.PC))

	return tree.String()
}

// FormatRegisters renders register values, one per line.
func FormatRegisters(regs []uint64) string {
	tree := treeprint.NewWithRoot("registers")
	for i, v := range regs {
		tree.AddMetaNode("%"+insts.RegName(insts.Reg(i)), fmt.Sprintf("%s (%d)", hex(v), int64(v)))
	}
	return tree.String()
}

func reg(r insts.Reg) string {
	return "%" + insts.RegName(r)
}

func hex(v uint64) string {
	return fmt.Sprintf("0x%x", v)
}
