package config

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// - 方案为随附的示例方案 luna（init-config 一并写出）；
// - 用户词典使用文本后端，编译快照写入 ./data/cache；
// - 不禁用任何组件。
func DefaultTemplateConfig() Config {
	d := Defaults()
	return Config{
		SharedDataDir: d.SharedDataDir,
		UserDataDir:   "user",
		Schema:        "luna",
		Logging:       Logging{Level: "info"},
		UserDB:        d.UserDB,
		Dict:          Dict{CacheDir: "data/cache"},
		Components:    Components{Disabled: []string{}},
	}
}

// SampleSchemaID 为示例方案标识。
const SampleSchemaID = "luna"

// SampleSchema 为示例方案：码表 + 选单 + 全角开关 + 标点。
const SampleSchema = `# luna.schema.yaml
schema:
  schema_id: luna
  name: 朙月拼音（示例）
menu:
  page_size: 5
switches:
  - name: full_shape
    states: [半角, 全角]
  - options: [simplification, traditionalization]
    states: [简, 繁]
engine:
  processors: [switcher, speller, punctuator, selector, navigator, express_editor]
  segmentors: [matcher, abc_segmentor, punct_segmentor, fallback_segmentor]
  translators: [switch_translator, punct_translator, table_translator, echo_translator]
  filters: [uniquifier, single_char_filter]
  formatters: [shape_formatter]
speller:
  alphabet: zyxwvutsrqponmlkjihgfedcba
  delimiter: "'"
recognizer:
  patterns:
    switcher: "` + "`" + `$"
    punct: "/[a-z]+"
table_translator:
  dictionary: luna
  enable_completion: true
  enable_user_dict: true
single_char_filter:
  option_name: single_char
punctuator:
  half_shape:
    ",": "，"
    ".": "。"
    "\\": "、"
    "/": ["／", "÷"]
    '"': {pair: ["“", "”"]}
    "!": {commit: "！"}
    "?": {commit: "？"}
  full_shape:
    ",": "，"
    ".": "。"
    "\\": "、"
    "/": "／"
    '"': {pair: ["“", "”"]}
    "!": {commit: "！"}
    "?": {commit: "？"}
  symbols:
    "/fh": ["©", "®", "℗"]
`

// SampleTable 为示例码表（文本 TableDb 格式：词\t编码\t权重）。
const SampleTable = `# luna.table.txt
你	ni	100
尼	ni	40
泥	ni	30
你好	nihao	80
拟好	nihao	30
你们	nimen	60
好	hao	90
号	hao	50
中	zhong	95
中文	zhongwen	70
输入	shuru	60
输入法	shurufa	55
`
