package emit

// runtimeDecls lists the helpers generated code may call. Only helpers that
// were requested through Module.Runtime are declared in the output.
var runtimeDecls = map[string]string{
	"rt_alloc":       "declare ptr @rt_alloc(i64)",
	"rt_free":        "declare void @rt_free(ptr)",
	"rt_str_eq":      "declare i32 @rt_str_eq(ptr, ptr)",
	"rt_str_cmp":     "declare i32 @rt_str_cmp(ptr, ptr)",
	"rt_str_hash":    "declare i64 @rt_str_hash(ptr)",
	"rt_print_str":   "declare void @rt_print_str(ptr)",
	"rt_print_i64":   "declare void @rt_print_i64(i64)",
	"rt_print_u64":   "declare void @rt_print_u64(i64)",
	"rt_print_f64":   "declare void @rt_print_f64(double)",
	"rt_str_concat":  "declare ptr @rt_str_concat(ptr, ptr)",
	"rt_i64_to_str":  "declare ptr @rt_i64_to_str(i64)",
	"rt_u64_to_str":  "declare ptr @rt_u64_to_str(i64)",
	"rt_f64_to_str":  "declare ptr @rt_f64_to_str(double)",
	"rt_char_to_str": "declare ptr @rt_char_to_str(i32)",
	"rt_ptr_to_str":  "declare ptr @rt_ptr_to_str(ptr)",
	"rt_panic":       "declare void @rt_panic(ptr) noreturn",
}

// RuntimeHelpers returns the names of all known helpers.
func RuntimeHelpers() []string {
	out := make([]string, 0, len(runtimeDecls))
	for name := range runtimeDecls {
		out = append(out, name)
	}
	return out
}
