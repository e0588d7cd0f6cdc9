package raster

// Landsat Collection 2 Level-2 surface temperature calibration. The scale
// and offset are sensor constants and must not be altered; Kelvin to
// Celsius is a further additive term applied after scaling.
const (
	ThermalScale    = 0.00341802
	ThermalOffset   = 149.0
	KelvinToCelsius = 273.15
)

// DeriveLST appends the LST band in °C, computed from the raw thermal DNs:
//
//	celsius = dn*0.00341802 + 149.0 - 273.15
//
// Only pixels still valid after masking get a value; masked pixels keep the
// zero value and stay invalid.
func DeriveLST(g *Grid) {
	lst := make([]float64, len(g.DN))
	for i, dn := range g.DN {
		if !g.Valid[i] {
			continue
		}
		lst[i] = float64(dn)*ThermalScale + ThermalOffset - KelvinToCelsius
	}
	g.LST = lst
}
