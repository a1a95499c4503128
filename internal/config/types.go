package config

// Config: 引擎装配配置（一次解析，运行期不变）。
// JSON 使用 snake_case，允许注释与尾逗号；未知字段在解析期失败。
type Config struct {
	SharedDataDir string  `json:"shared_data_dir"`
	UserDataDir   string  `json:"user_data_dir"`
	Schema        string  `json:"schema"`
	Logging       Logging `json:"logging"`
	UserDB        UserDB  `json:"user_db"`
	Dict          Dict    `json:"dict"`

	Components Components `json:"components"`
	Menu       Menu       `json:"menu"`
}

// Logging: 仅保留日志等级可配置；输出路径与轮转策略为固定默认。
type Logging struct {
	Level string `json:"level"`
}

// UserDB: 用户词典后端（text|sqlite）。
type UserDB struct {
	Backend string `json:"backend"`
}

// Dict: 编译快照目录；为空时每次从源文件加载。
type Dict struct {
	CacheDir string `json:"cache_dir"`
}

// Components: 装配时跳过的组件名（即使方案中声明）。
type Components struct {
	Disabled []string `json:"disabled"`
}

// Menu: 覆盖方案的页大小（0 表示沿用方案）。
type Menu struct {
	PageSizeOverride int `json:"page_size_override"`
}
