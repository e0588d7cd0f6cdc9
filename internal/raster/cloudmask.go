package raster

// QA_PIXEL bit positions for cloud contamination.
const (
	QABitCirrus      = 2
	QABitCloudShadow = 3
	QABitCloud       = 4

	cloudMaskBits = 1<<QABitCirrus | 1<<QABitCloudShadow | 1<<QABitCloud
)

// ApplyCloudMask invalidates every pixel whose QA flags any of cloud, cloud
// shadow, or cirrus. It only ever shrinks the valid set; a fully cloudy
// scene comes out with no valid pixels, which downstream treats as "no
// data" rather than an error.
func ApplyCloudMask(g *Grid) {
	for i, qa := range g.QA {
		if qa&cloudMaskBits != 0 {
			g.Valid[i] = false
		}
	}
}
