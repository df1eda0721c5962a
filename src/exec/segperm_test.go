package exec

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"

	"riscv"
)

func TestSegPermAlwaysUserAccessible(t *testing.T) {
	assert.NotZero(t, segPerm(0)&riscv.PTE_U)
}

func TestSegPermMapsReadWriteExecFlags(t *testing.T) {
	perm := segPerm(elf.PF_R)
	assert.NotZero(t, perm&riscv.PTE_R)
	assert.Zero(t, perm&riscv.PTE_W)
	assert.Zero(t, perm&riscv.PTE_X)

	perm = segPerm(elf.PF_R | elf.PF_W)
	assert.NotZero(t, perm&riscv.PTE_R)
	assert.NotZero(t, perm&riscv.PTE_W)
	assert.Zero(t, perm&riscv.PTE_X)

	perm = segPerm(elf.PF_R | elf.PF_X)
	assert.NotZero(t, perm&riscv.PTE_R)
	assert.Zero(t, perm&riscv.PTE_W)
	assert.NotZero(t, perm&riscv.PTE_X)
}

func TestSegPermNoFlagsGivesOnlyUser(t *testing.T) {
	perm := segPerm(0)
	assert.Zero(t, perm&riscv.PTE_R)
	assert.Zero(t, perm&riscv.PTE_W)
	assert.Zero(t, perm&riscv.PTE_X)
}
