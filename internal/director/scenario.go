package director

// FrameDirective - все параметры одной итерации конвейера. Имена полей в
// файле совпадают со сценариями, которые выдаёт редактор ключевых кадров.
type FrameDirective struct {
	RotationX float64 `yaml:"rotx" json:"rotx"` // градусы
	RotationY float64 `yaml:"roty" json:"roty"` // градусы
	RotationZ float64 `yaml:"rotz" json:"rotz"` // градусы
	PanX      float64 `yaml:"panx" json:"panx"` // пиксели, плюс - вправо
	PanY      float64 `yaml:"pany" json:"pany"` // пиксели, плюс - вниз
	Zoom      float64 `yaml:"zoom" json:"zoom"` // пиксели вдоль оптической оси, плюс - приближение

	LoopbackFrames int     `yaml:"loopback_frames" json:"loopback_frames"`
	LoopbackDecay  float64 `yaml:"loopback_decay" json:"loopback_decay"`

	Seed    int64   `yaml:"seed" json:"seed"`
	Scale   float64 `yaml:"scale" json:"scale"`
	Denoise float64 `yaml:"denoise" json:"denoise"`
	Prompt  string  `yaml:"prompt" json:"prompt"`
}

// Record - одна запись сценария: директива, привязанная к кадру.
type Record struct {
	Frame          int `yaml:"frame" json:"frame"`
	FrameDirective `yaml:",inline"`
}

// rawRecord держит номер кадра указателем, чтобы отличить пропущенное поле
// от кадра 0.
type rawRecord struct {
	Frame          *float64 `yaml:"frame" json:"frame"`
	FrameDirective `yaml:",inline"`
}
