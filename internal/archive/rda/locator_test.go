package rda_test

import (
	"testing"
	"time"

	"github.com/italolelis/era5_downloader/internal/archive/rda"
	"github.com/italolelis/era5_downloader/internal/catalog"
	"github.com/italolelis/era5_downloader/internal/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pressureVar(t *testing.T, mnemonic string) *catalog.Variable {
	t.Helper()

	for i := range catalog.PressureLevelVars {
		if catalog.PressureLevelVars[i].Mnemonic == mnemonic {
			return &catalog.PressureLevelVars[i]
		}
	}

	t.Fatalf("no pressure variable %s", mnemonic)

	return nil
}

func singleVar(t *testing.T, mnemonic string) *catalog.Variable {
	t.Helper()

	for i := range catalog.SingleLevelVars {
		if catalog.SingleLevelVars[i].Mnemonic == mnemonic {
			return &catalog.SingleLevelVars[i]
		}
	}

	t.Fatalf("no single-level variable %s", mnemonic)

	return nil
}

func TestLocateDaily(t *testing.T) {
	locator := rda.NewLocator("")

	unit := plan.Unit{
		Key:      plan.TemporalKey{Year: 2014, Month: time.May, Day: 1},
		Variable: pressureVar(t, "T"),
	}

	target, err := locator.Locate(unit)
	require.NoError(t, err)

	assert.Equal(t, "e5.oper.an.pl.128_130_t.ll025sc.2014050100_2014050123.nc", target.Filename)
	assert.Equal(t,
		rda.DefaultBaseURL+"/e5.oper.an.pl/201405/e5.oper.an.pl.128_130_t.ll025sc.2014050100_2014050123.nc",
		target.URL)
	assert.Nil(t, target.Body)
}

func TestLocateZeroPadsParameterCode(t *testing.T) {
	locator := rda.NewLocator("")

	unit := plan.Unit{
		Key:      plan.TemporalKey{Year: 2014, Month: time.May, Day: 1},
		Variable: singleVar(t, "SSTK"), // code 34
	}

	target, err := locator.Locate(unit)
	require.NoError(t, err)
	assert.Equal(t, "e5.oper.an.sfc.128_034_sst.ll025sc.2014050100_2014050123.nc", target.Filename)
}

func TestLocateVectorGridSuffix(t *testing.T) {
	locator := rda.NewLocator("")

	unit := plan.Unit{
		Key:      plan.TemporalKey{Year: 2014, Month: time.May, Day: 1},
		Variable: pressureVar(t, "U"),
	}

	target, err := locator.Locate(unit)
	require.NoError(t, err)
	assert.Contains(t, target.Filename, ".ll025uv.")
}

func TestLocateMonthly(t *testing.T) {
	tests := []struct {
		name     string
		year     int
		month    time.Month
		wantSpan string
	}{
		{"leap february", 2016, time.February, "2016020100_2016022923"},
		{"regular february", 2015, time.February, "2015020100_2015022823"},
		{"31-day month", 2014, time.May, "2014050100_2014053123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locator := rda.NewLocator("")

			unit := plan.Unit{
				Key:      plan.TemporalKey{Year: tt.year, Month: tt.month},
				Variable: singleVar(t, "SP"),
			}

			target, err := locator.Locate(unit)
			require.NoError(t, err)
			assert.Equal(t, "e5.oper.an.sfc.128_134_sp.ll025sc."+tt.wantSpan+".nc", target.Filename)
		})
	}
}

func TestLocateIsPure(t *testing.T) {
	locator := rda.NewLocator("https://example.org/base")

	unit := plan.Unit{
		Key:      plan.TemporalKey{Year: 2014, Month: time.May, Day: 12},
		Variable: pressureVar(t, "Z"),
	}

	first, err := locator.Locate(unit)
	require.NoError(t, err)

	second, err := locator.Locate(unit)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLocateRejectsBulkUnit(t *testing.T) {
	locator := rda.NewLocator("")

	_, err := locator.Locate(plan.Unit{Key: plan.TemporalKey{Year: 2014, Month: time.May, Day: 1}})
	assert.Error(t, err)
}
