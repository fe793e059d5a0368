package inspection

import (
	"fmt"
	"strings"
)

// Verification is the canonical view of an instance's organizational
// verification list. Every field is resolved through an ordered alias list;
// the first alias with a non-empty value wins.
type Verification struct {
	Vicepresidencia        string
	SuperintendenciaSenior string
	Superintendencia       string
	AreaFisica             string
	Empresa                string
	Supervisor             string
	Lugar                  string
}

// Fallback literals used when no alias resolves to a value.
const (
	FallbackArea            = "Área no especificada"
	FallbackEmpresa         = "Empresa no especificada"
	FallbackSupervisor      = "No asignado"
	FallbackLugar           = "Lugar no especificado"
	FallbackVicepresidencia = "Vicepresidencia no especificada"
)

// Ordered alias lists per organizational attribute. First match wins; the
// order is part of the contract with legacy verification lists, so entries
// must only ever be appended.
var (
	aliasVicepresidencia  = []string{"vicepresidencia", "vp"}
	aliasSuperSenior      = []string{"superintendencia senior", "superintendente senior"}
	aliasSuperintendencia = []string{"superintendencia", "superintendente"}
	aliasAreaFisica       = []string{"área física", "area fisica", "área", "area", "zona"}
	aliasEmpresa          = []string{"empresa", "empresa contratista", "contratista", "compañía", "compania"}
	aliasSupervisor       = []string{"supervisor", "supervisor responsable", "responsable", "inspector"}
	aliasLugar            = []string{"lugar", "lugar específico", "lugar especifico", "ubicación", "ubicacion"}
)

// NormalizeVerificationList turns an arbitrarily shaped verification list
// into a canonical key -> string mapping. The input may be a typed map, an
// untyped decoded JSON object, or a list of {name, value} entries; business
// logic never branches on the runtime shape again after this point.
func NormalizeVerificationList(raw any) map[string]string {
	out := make(map[string]string)
	switch v := raw.(type) {
	case nil:
		return out
	case map[string]string:
		for k, val := range v {
			put(out, k, val)
		}
	case map[string]any:
		for k, val := range v {
			put(out, k, stringify(val))
		}
	case []any:
		for _, entry := range v {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			name := stringify(m["name"])
			if name == "" {
				name = stringify(m["campo"])
			}
			value := stringify(m["value"])
			if value == "" {
				value = stringify(m["valor"])
			}
			put(out, name, value)
		}
	}
	return out
}

// ResolveVerification normalizes raw and resolves every canonical field.
func ResolveVerification(raw any) Verification {
	m := NormalizeVerificationList(raw)
	return Verification{
		Vicepresidencia:        resolveField(m, aliasVicepresidencia, FallbackVicepresidencia),
		SuperintendenciaSenior: resolveField(m, aliasSuperSenior, ""),
		Superintendencia:       resolveField(m, aliasSuperintendencia, ""),
		AreaFisica:             resolveField(m, aliasAreaFisica, FallbackArea),
		Empresa:                resolveField(m, aliasEmpresa, FallbackEmpresa),
		Supervisor:             resolveField(m, aliasSupervisor, FallbackSupervisor),
		Lugar:                  resolveField(m, aliasLugar, FallbackLugar),
	}
}

// resolveField returns the first alias with a non-empty value, else fallback.
func resolveField(m map[string]string, aliases []string, fallback string) string {
	for _, alias := range aliases {
		if v, ok := m[alias]; ok && v != "" {
			return v
		}
	}
	return fallback
}

func put(m map[string]string, key, value string) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return
	}
	m[key] = strings.TrimSpace(value)
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}
