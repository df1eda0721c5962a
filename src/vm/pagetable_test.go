package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mem"
	"riscv"
)

func TestVpnExtractsEachLevelIndependently(t *testing.T) {
	// va with distinct 9-bit fields at each Sv39 level: level 0 = 1,
	// level 1 = 2, level 2 = 3.
	va := uintptr(1)<<12 | uintptr(2)<<21 | uintptr(3)<<30
	assert.Equal(t, 1, vpn(va, 0))
	assert.Equal(t, 2, vpn(va, 1))
	assert.Equal(t, 3, vpn(va, 2))
}

func TestVpnMasksToNineBits(t *testing.T) {
	va := uintptr(0x1ff) << 12
	assert.Equal(t, 0x1ff, vpn(va, 0))
	va2 := uintptr(0x3ff) << 12 // 10 bits set, top bit must be masked off
	assert.Equal(t, 0x1ff, vpn(va2, 0))
}

func TestPA2PTEAndPTE2PARoundTrip(t *testing.T) {
	pa := mem.Pa_t(0x80123000)
	pte := PA2PTE(pa)
	assert.Equal(t, pa, PTE2PA(pte))
}

func TestPA2PTEDropsPageOffset(t *testing.T) {
	pa := mem.Pa_t(0x80123456)
	pte := PA2PTE(pa)
	// The PPN field only carries page-aligned bits; the offset is lost.
	assert.Equal(t, mem.Pa_t(0x80123000), PTE2PA(pte))
}

func TestPA2PTELeavesNoFlagBitsSet(t *testing.T) {
	pa := mem.Pa_t(0x80000000)
	pte := PA2PTE(pa)
	assert.Zero(t, pte&riscv.PTE_V)
	assert.Zero(t, pte&riscv.PTE_R)
	assert.Zero(t, pte&riscv.PTE_W)
	assert.Zero(t, pte&riscv.PTE_X)
}
