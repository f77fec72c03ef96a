package bulldozer

func validateProfile(args *UserArgs) error {
	if err := validateName(args.UserName); err != nil {
		return err
	}
	if err := validateName(args.Name); err != nil {
		return err
	}
	return validateURL(args.ThumbnailURL)
}

// createUser accounts:
//
//	[0] authority (signer, writable)
//	[1] user      (writable, pda "user" + authority)
func createUser(r *request, args *UserArgs) error {
	authority, err := r.signerMut(0)
	if err != nil {
		return err
	}
	userAcc, err := r.mut(1)
	if err != nil {
		return err
	}

	bump, err := r.derive(userAcc, userSeeds(authority.Key))
	if err != nil {
		return err
	}
	if err := validateProfile(args); err != nil {
		return err
	}
	if err := r.createPaid(authority, userAcc, UserSize); err != nil {
		return err
	}

	return r.store(userAcc, &User{
		Authority:    authority.Key,
		UserName:     args.UserName,
		Name:         args.Name,
		ThumbnailURL: args.ThumbnailURL,
		CreatedAt:    r.now,
		UpdatedAt:    r.now,
		Bump:         bump,
	})
}

// updateUser accounts:
//
//	[0] authority (signer)
//	[1] user      (writable)
func updateUser(r *request, args *UserArgs) error {
	authority, err := r.signer(0)
	if err != nil {
		return err
	}
	userAcc, err := r.mut(1)
	if err != nil {
		return err
	}

	user := &User{}
	if err := r.load(userAcc, user); err != nil {
		return err
	}
	if user.Authority != authority.Key {
		return ErrConstraintHasOne
	}
	if err := validateProfile(args); err != nil {
		return err
	}

	user.UserName = args.UserName
	user.Name = args.Name
	user.ThumbnailURL = args.ThumbnailURL
	user.UpdatedAt = r.now
	return r.store(userAcc, user)
}

// deleteUser accounts:
//
//	[0] authority (signer, writable)
//	[1] user      (writable)
func deleteUser(r *request) error {
	authority, err := r.signerMut(0)
	if err != nil {
		return err
	}
	userAcc, err := r.mut(1)
	if err != nil {
		return err
	}

	user := &User{}
	if err := r.load(userAcc, user); err != nil {
		return err
	}
	if user.Authority != authority.Key {
		return ErrConstraintHasOne
	}
	return r.close(userAcc, authority)
}
