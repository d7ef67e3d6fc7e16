// Package device reports the compute target the numeric kernels run on.
package device

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// Info describes the host CPU.
type Info struct {
	Brand    string
	Arch     string
	Physical int
	Logical  int
	SIMD     []string
}

// Detect inspects the running CPU.
func Detect() Info {
	info := Info{
		Brand:    cpuid.CPU.BrandName,
		Arch:     runtime.GOARCH,
		Physical: cpuid.CPU.PhysicalCores,
		Logical:  cpuid.CPU.LogicalCores,
	}
	if info.Brand == "" {
		info.Brand = "unknown"
	}
	for _, f := range []struct {
		name string
		ids  []cpuid.FeatureID
	}{
		{"avx512", []cpuid.FeatureID{cpuid.AVX512F, cpuid.AVX512DQ}},
		{"avx2", []cpuid.FeatureID{cpuid.AVX2}},
		{"fma", []cpuid.FeatureID{cpuid.FMA3}},
		{"asimd", []cpuid.FeatureID{cpuid.ASIMD}},
	} {
		if cpuid.CPU.Supports(f.ids...) {
			info.SIMD = append(info.SIMD, f.name)
		}
	}
	return info
}

// String renders a one-line description.
func (i Info) String() string {
	simd := "none"
	if len(i.SIMD) > 0 {
		simd = strings.Join(i.SIMD, ",")
	}
	return fmt.Sprintf("cpu=%q arch=%s cores=%d threads=%d simd=%s", i.Brand, i.Arch, i.Physical, i.Logical, simd)
}
