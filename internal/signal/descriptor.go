package signal

// VascularDescriptor is the spatial feature vector sampled from a palm
// region: red-channel and cyan-proxy statistics plus a coarse 3x3 grid of
// normalized red values. Deterministic for a given frame and region.
type VascularDescriptor struct {
	// MeanRed is the region mean of the red channel, normalized to [0,1].
	// Red carries the venous contrast in an RGB simulation of NIR capture.
	MeanRed float64 `json:"meanRed"`
	// MeanCyan is the region mean of (G+B)/2, complementary to red.
	MeanCyan     float64 `json:"meanCyan"`
	VarianceRed  float64 `json:"varianceRed"`
	VarianceCyan float64 `json:"varianceCyan"`
	// RedGrid is a fixed 3x3 sample of the red channel normalized to [0,1].
	RedGrid [9]float64 `json:"redGrid"`
}

const gridSize = 3

// ExtractVascularDescriptor samples the square region of side regionSize
// centered on (cx, cy) and computes the vascular feature vector. The region
// is clamped to the frame; an empty intersection yields the zero descriptor.
func ExtractVascularDescriptor(f Frame, cx, cy, regionSize int) VascularDescriptor {
	var d VascularDescriptor
	if !f.valid() || regionSize <= 0 {
		return d
	}

	sx := cx - regionSize/2
	if sx < 0 {
		sx = 0
	}
	sy := cy - regionSize/2
	if sy < 0 {
		sy = 0
	}
	ex := sx + regionSize
	if ex > f.Width {
		ex = f.Width
	}
	ey := sy + regionSize
	if ey > f.Height {
		ey = f.Height
	}
	if sx >= ex || sy >= ey {
		return d
	}

	n := float64((ex - sx) * (ey - sy))
	var sumRed, sumCyan float64
	for y := sy; y < ey; y++ {
		for x := sx; x < ex; x++ {
			r, g, b := f.at(x, y)
			sumRed += float64(r)
			sumCyan += (float64(g) + float64(b)) / 2
		}
	}
	meanRed := sumRed / n
	meanCyan := sumCyan / n

	var varRed, varCyan float64
	for y := sy; y < ey; y++ {
		for x := sx; x < ex; x++ {
			r, g, b := f.at(x, y)
			dr := float64(r) - meanRed
			dc := (float64(g)+float64(b))/2 - meanCyan
			varRed += dr * dr
			varCyan += dc * dc
		}
	}

	step := regionSize / gridSize
	if step < 1 {
		step = 1
	}
	for gy := 0; gy < gridSize; gy++ {
		for gx := 0; gx < gridSize; gx++ {
			px := sx + gx*step
			py := sy + gy*step
			if px < f.Width && py < f.Height {
				r, _, _ := f.at(px, py)
				d.RedGrid[gy*gridSize+gx] = float64(r) / 255
			}
		}
	}

	d.MeanRed = meanRed / 255
	d.MeanCyan = meanCyan / 255
	d.VarianceRed = varRed / n / (255 * 255)
	d.VarianceCyan = varCyan / n / (255 * 255)
	return d
}
