package fees

import "feeScope/internal/model"

// yearAccumulator holds running sums for one asset-year.
type yearAccumulator struct {
	feeSum      float64
	feeCount    int
	volumeSum   float64
	volumeCount int
}

// add counts a row only when its fee percentage is present; the volume weight
// is averaged over those same rows.
func (a *yearAccumulator) add(feePct, volume float64) {
	if model.IsMissing(feePct) {
		return
	}
	a.feeSum += feePct
	a.feeCount++
	if !model.IsMissing(volume) {
		a.volumeSum += volume
		a.volumeCount++
	}
}

func (a *yearAccumulator) meanFee() (float64, bool) {
	if a == nil || a.feeCount == 0 {
		return model.Missing(), false
	}
	return a.feeSum / float64(a.feeCount), true
}

func (a *yearAccumulator) meanVolume() float64 {
	if a == nil || a.volumeCount == 0 {
		return model.Missing()
	}
	return a.volumeSum / float64(a.volumeCount)
}
