// token emite un JWT de desarrollo para un tenant y rol, firmado con JWT_SECRET.
//
// Uso: go run ./cmd/token -tenant <uuid> -user <uuid> -role bodeguero
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/inventario-core/pkg/config"
	"github.com/jhoicas/inventario-core/pkg/jwt"
)

func main() {
	tenant := flag.String("tenant", "", "tenant_id (requerido)")
	user := flag.String("user", "dev", "user_id")
	role := flag.String("role", jwt.RoleAdmin, "admin | bodeguero | vendedor")
	flag.Parse()

	if *tenant == "" {
		fmt.Fprintln(os.Stderr, "-tenant es requerido")
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	tok, err := jwt.Generate(cfg.JWT.Secret, *user, *tenant, *role, cfg.JWT.Issuer, cfg.JWT.Expiration)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Generar token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
