package registry

import "github.com/vbuzzano/DevBoxFoundry-sub000/internal/userdata"

// Reconcile adds the namespace routines of mode to reg, producing the same
// command names a disk scan of the routines' sources would have. Every
// routine's command name is the first element of its path; entries get the
// CoreEmbedded tier and keep first-wins semantics.
func Reconcile(reg *Registry, ns *Namespace, mode userdata.Mode) error {
	routines := ns.ForMode(mode)

	subs := make(map[string]map[string]*Descriptor)
	for _, r := range routines {
		if r.Kind != KindDirectorySubcommand || len(r.Path) < 2 {
			continue
		}
		key := r.Module + "\x00" + r.Path[0]
		if subs[key] == nil {
			subs[key] = make(map[string]*Descriptor)
		}
		sub := r.Path[1]
		if _, dup := subs[key][sub]; dup {
			continue
		}
		subs[key][sub] = &Descriptor{
			Name:     r.Path[0] + "." + sub,
			Kind:     KindDirectorySubcommand,
			Target:   r.ID(),
			Tier:     TierCoreEmbedded,
			Module:   r.Module,
			Synopsis: r.Synopsis,
			Parent:   r.Path[0],
			Embedded: true,
		}
	}

	families := make(map[string]bool)
	for _, r := range routines {
		var d *Descriptor
		switch r.Kind {
		case KindDirectorySubcommand:
			continue
		case KindFunction:
			key := r.Module + "\x00" + r.Path[0]
			if families[key] {
				continue
			}
			families[key] = true
			d = functionDescriptor(ns, r)
		default:
			d = &Descriptor{
				Name:     r.Path[0],
				Kind:     r.Kind,
				Target:   r.ID(),
				Tier:     TierCoreEmbedded,
				Module:   r.Module,
				Synopsis: r.Synopsis,
				Routes:   r.Routes,
				Embedded: true,
			}
			if r.Help != nil {
				d.HelpFunc = r.ID()
			}
			if r.Kind == KindDirectoryDefault {
				if r.Run == nil {
					d.Target = ""
				}
				d.Subcommands = subs[r.Module+"\x00"+r.Path[0]]
				if d.Subcommands == nil {
					d.Subcommands = make(map[string]*Descriptor)
				}
			}
		}
		if err := reg.Add(Candidate{Tier: TierCoreEmbedded, Descriptor: d}); err != nil {
			return err
		}
	}
	return nil
}
