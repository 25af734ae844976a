package composer

import (
	"strings"

	"github.com/melih-ucgun/clonectl/internal/plan"
	"github.com/melih-ucgun/clonectl/internal/reconcile"
	"github.com/melih-ucgun/clonectl/internal/redfish"
	"github.com/melih-ucgun/clonectl/internal/tree"
)

// Certificates imports the supplementary certificate files given at load.
// Certificate material itself is never part of a snapshot.
type Certificates struct {
	Default
}

func NewCertificates() *Certificates { return &Certificates{} }

func (c *Certificates) Name() string { return "certificates" }

var certificateMaterial = []string{"X509CertificateInformation", "CertificateSigningRequest", "Certificate", "SSOsettings"}

func (c *Certificates) Save(env *Env, inst redfish.Instance) (tree.Tree, error) {
	for _, k := range certificateMaterial {
		delete(inst.Tree, k)
	}
	return tree.Prune(tree.RemoveKeys(inst.Tree, isCredential), nil), nil
}

func (c *Certificates) Plan(env *Env, sec Section, e reconcile.Entry) ([]plan.Item, error) {
	items, err := c.Default.Plan(env, sec, e)
	if err != nil || e.Live == nil {
		return items, err
	}

	var action string
	var body tree.Tree
	switch {
	case strings.EqualFold(sec.Name, "HpeHttpsCert") && env.Options.SSLCert != "":
		action = "HpeHttpsCert.ImportCertificate"
		body = tree.Tree{"Certificate": env.Options.SSLCert}
	case strings.EqualFold(sec.Name, "HpeiLOSSO") && env.Options.SSOCert != "":
		action = "HpeiLOSSO.ImportCertificate"
		body = tree.Tree{"CertType": "DirectImportCert", "CertInput": env.Options.SSOCert}
	default:
		return items, nil
	}

	return append(items, plan.Item{
		ID:          itemID(sec, e.Path, "import"),
		Phase:       plan.PhasePatch,
		Ordinal:     2,
		Method:      plan.MethodAction,
		TargetPath:  e.Path,
		Action:      action,
		Body:        body,
		Section:     sec.Type,
		Description: "import certificate",
	}), nil
}
