package colorcorr

const levels = 256

// histogram считает значения одного канала.
func histogram(pix []byte, channel int) (hist [levels]int, total int) {
	for i := channel; i < len(pix); i += 3 {
		hist[pix[i]]++
		total++
	}
	return hist, total
}

// matchLUT отображает каждый уровень источника на распределение эталона:
// накопленный квантиль каждого встреченного значения ищется на кривой
// квантилей эталона с линейной интерполяцией между его значениями. Уровни,
// которых нет в источнике, отображаются сами в себя.
func matchLUT(src, tmpl [levels]int, srcTotal, tmplTotal int) [levels]float64 {
	var lut [levels]float64
	for v := range lut {
		lut[v] = float64(v)
	}
	if srcTotal == 0 || tmplTotal == 0 {
		return lut
	}

	tmplValues := make([]float64, 0, levels)
	tmplQuantiles := make([]float64, 0, levels)
	cum := 0
	for v, n := range tmpl {
		if n == 0 {
			continue
		}
		cum += n
		tmplValues = append(tmplValues, float64(v))
		tmplQuantiles = append(tmplQuantiles, float64(cum)/float64(tmplTotal))
	}

	cum = 0
	for v, n := range src {
		if n == 0 {
			continue
		}
		cum += n
		lut[v] = interp(float64(cum)/float64(srcTotal), tmplQuantiles, tmplValues)
	}
	return lut
}

// interp - одномерная кусочно-линейная интерполяция по возрастающему xp;
// за пределами диапазона берутся крайние значения.
func interp(x float64, xp, fp []float64) float64 {
	if x <= xp[0] {
		return fp[0]
	}
	last := len(xp) - 1
	if x >= xp[last] {
		return fp[last]
	}
	lo, hi := 0, last
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if xp[mid] <= x {
			lo = mid
		} else {
			hi = mid
		}
	}
	t := (x - xp[lo]) / (xp[hi] - xp[lo])
	return fp[lo] + t*(fp[hi]-fp[lo])
}
